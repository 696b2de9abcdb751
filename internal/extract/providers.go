package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pagesift/pagesift/internal/config"
)

// strategy builds the provider-specific HTTP request and extracts the
// textual completion from the response body. Strategies are stateless.
type strategy interface {
	requiresCredential() bool
	timeout(settings config.ProviderConfig) time.Duration
	buildRequest(ctx context.Context, settings config.ProviderConfig, prompt string) (*http.Request, error)
	parseResponse(body []byte) (string, error)
}

// defaultStrategies is the fixed dispatch set. Provider names outside this
// table yield an "unsupported provider" envelope.
func defaultStrategies() map[string]strategy {
	return map[string]strategy{
		"openai":       chatCompletionsStrategy{defaultBaseURL: "https://api.openai.com/v1", defaultModel: "gpt-3.5-turbo"},
		"qwen":         chatCompletionsStrategy{defaultBaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", defaultModel: "qwen-turbo"},
		"azure_openai": azureStrategy{},
		"local_llm":    ollamaStrategy{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatCompletionsStrategy covers the OpenAI-compatible chat completions
// surface shared by the hosted providers (openai, qwen).
type chatCompletionsStrategy struct {
	defaultBaseURL string
	defaultModel   string
}

func (chatCompletionsStrategy) requiresCredential() bool { return true }

func (chatCompletionsStrategy) timeout(settings config.ProviderConfig) time.Duration {
	if settings.TimeoutSeconds > 0 {
		return time.Duration(settings.TimeoutSeconds) * time.Second
	}
	return 60 * time.Second
}

func (s chatCompletionsStrategy) buildRequest(ctx context.Context, settings config.ProviderConfig, prompt string) (*http.Request, error) {
	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = s.defaultBaseURL
	}
	endpoint := completionsURL(baseURL)
	model := settings.Model
	if model == "" {
		model = s.defaultModel
	}
	body, err := json.Marshal(chatCompletionsRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokensOrDefault(settings),
		Temperature: settings.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+settings.APIKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (chatCompletionsStrategy) parseResponse(body []byte) (string, error) {
	var parsed chatCompletionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response contains no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// azureStrategy targets Azure OpenAI deployments: api-key header and a
// deployment-scoped URL with an api-version query parameter.
type azureStrategy struct{}

func (azureStrategy) requiresCredential() bool { return true }

func (azureStrategy) timeout(settings config.ProviderConfig) time.Duration {
	if settings.TimeoutSeconds > 0 {
		return time.Duration(settings.TimeoutSeconds) * time.Second
	}
	return 60 * time.Second
}

func (azureStrategy) buildRequest(ctx context.Context, settings config.ProviderConfig, prompt string) (*http.Request, error) {
	if settings.BaseURL == "" || settings.DeploymentName == "" {
		return nil, fmt.Errorf("azure_openai requires base_url and deployment_name")
	}
	apiVersion := settings.APIVersion
	if apiVersion == "" {
		apiVersion = "2024-02-15-preview"
	}
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimSuffix(settings.BaseURL, "/"), settings.DeploymentName, apiVersion)
	body, err := json.Marshal(chatCompletionsRequest{
		Model:       settings.DeploymentName,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokensOrDefault(settings),
		Temperature: settings.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal azure request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build azure request: %w", err)
	}
	req.Header.Set("api-key", settings.APIKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (azureStrategy) parseResponse(body []byte) (string, error) {
	return chatCompletionsStrategy{}.parseResponse(body)
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// ollamaStrategy talks to a local inference server; it is the designated
// no-credential provider.
type ollamaStrategy struct{}

func (ollamaStrategy) requiresCredential() bool { return false }

func (ollamaStrategy) timeout(settings config.ProviderConfig) time.Duration {
	if settings.TimeoutSeconds > 0 {
		return time.Duration(settings.TimeoutSeconds) * time.Second
	}
	return 120 * time.Second
}

func (ollamaStrategy) buildRequest(ctx context.Context, settings config.ProviderConfig, prompt string) (*http.Request, error) {
	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := settings.Model
	if model == "" {
		model = "llama2"
	}
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": settings.Temperature,
			"num_predict": maxTokensOrDefault(settings),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(baseURL, "/")+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (ollamaStrategy) parseResponse(body []byte) (string, error) {
	var parsed ollamaGenerateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return parsed.Response, nil
}

func completionsURL(baseURL string) string {
	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return strings.TrimSuffix(baseURL, "/") + "/chat/completions"
}

func maxTokensOrDefault(settings config.ProviderConfig) int {
	if settings.MaxTokens > 0 {
		return settings.MaxTokens
	}
	return 2000
}
