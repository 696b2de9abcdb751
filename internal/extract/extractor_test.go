package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pagesift/pagesift/internal/config"
)

func chatServer(t *testing.T, reply string, capture *chatCompletionsRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"` + reply + `"}}]}`))
	}))
}

func TestExtractOpenAIHappyPath(t *testing.T) {
	t.Parallel()

	var captured chatCompletionsRequest
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"title\":\"Doc\"}"}}]}`))
	}))
	defer srv.Close()

	e := New(config.AIConfig{
		DefaultProvider: "openai",
		Providers: map[string]config.ProviderConfig{
			"openai": {
				APIKey:      "sk-test",
				BaseURL:     srv.URL,
				Model:       "gpt-4o-mini",
				Temperature: 0.2,
				MaxTokens:   500,
			},
		},
	}, zap.NewNop())

	res := e.Extract(context.Background(), "page content", "structured_data", "openai")
	require.True(t, res.Success)
	require.Equal(t, "structured_data", res.Mode)
	require.Equal(t, "openai", res.Provider)
	require.Equal(t, `{"title":"Doc"}`, res.Result)
	require.NotEmpty(t, res.Timestamp)
	require.Empty(t, res.Error)

	require.Equal(t, "Bearer sk-test", authHeader)
	require.Equal(t, "gpt-4o-mini", captured.Model)
	require.Equal(t, 500, captured.MaxTokens)
	require.Len(t, captured.Messages, 1)
	require.Contains(t, captured.Messages[0].Content, "page content")
}

func TestExtractLocalLLMNeedsNoCredential(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.False(t, req.Stream)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"local summary"}`))
	}))
	defer srv.Close()

	e := New(config.AIConfig{
		Providers: map[string]config.ProviderConfig{
			"local_llm": {BaseURL: srv.URL, Model: "llama3"},
		},
	}, zap.NewNop())

	res := e.Extract(context.Background(), "content", "content_summary", "local_llm")
	require.True(t, res.Success)
	require.Equal(t, "local summary", res.Result)
}

func TestExtractAzureDeploymentURL(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("api-key")
		gotVersion = r.URL.Query().Get("api-version")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"azure result"}}]}`))
	}))
	defer srv.Close()

	e := New(config.AIConfig{
		Providers: map[string]config.ProviderConfig{
			"azure_openai": {
				APIKey:         "azure-key",
				BaseURL:        srv.URL,
				DeploymentName: "gpt4-prod",
				APIVersion:     "2024-06-01",
			},
		},
	}, zap.NewNop())

	res := e.Extract(context.Background(), "content", "entities", "azure_openai")
	require.True(t, res.Success)
	require.Equal(t, "azure result", res.Result)
	require.Equal(t, "/openai/deployments/gpt4-prod/chat/completions", gotPath)
	require.Equal(t, "azure-key", gotKey)
	require.Equal(t, "2024-06-01", gotVersion)
}

func TestExtractUnsupportedProvider(t *testing.T) {
	t.Parallel()

	e := New(config.AIConfig{}, zap.NewNop())
	res := e.Extract(context.Background(), "content", "entities", "anthropic")
	require.False(t, res.Success)
	require.Contains(t, res.Error, "unsupported provider")
	require.Equal(t, "anthropic", res.Provider)
}

func TestExtractMissingCredential(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"", "   ", "your-openai-api-key-here"} {
		e := New(config.AIConfig{
			Providers: map[string]config.ProviderConfig{
				"openai": {APIKey: key},
			},
		}, zap.NewNop())
		res := e.Extract(context.Background(), "content", "entities", "openai")
		require.False(t, res.Success, "key %q", key)
		require.Contains(t, res.Error, "credential not configured")
	}
}

func TestExtractProviderErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := New(config.AIConfig{
		Providers: map[string]config.ProviderConfig{
			"openai": {APIKey: "sk-test", BaseURL: srv.URL},
		},
	}, zap.NewNop())

	res := e.Extract(context.Background(), "content", "entities", "openai")
	require.False(t, res.Success)
	require.Contains(t, res.Error, "status 429")
}

func TestExtractDefaultsModeAndProvider(t *testing.T) {
	t.Parallel()

	var captured chatCompletionsRequest
	srv := chatServer(t, "ok", &captured)
	defer srv.Close()

	e := New(config.AIConfig{
		DefaultProvider: "qwen",
		Providers: map[string]config.ProviderConfig{
			"qwen": {APIKey: "qwen-key", BaseURL: srv.URL},
		},
		Extraction: config.ExtractionConfig{DefaultMode: "key_points"},
	}, zap.NewNop())

	res := e.Extract(context.Background(), "content", "", "")
	require.True(t, res.Success)
	require.Equal(t, "key_points", res.Mode)
	require.Equal(t, "qwen", res.Provider)
}

func TestExtractUnknownModeUsesGenericPrompt(t *testing.T) {
	t.Parallel()

	var captured chatCompletionsRequest
	srv := chatServer(t, "ok", &captured)
	defer srv.Close()

	e := New(config.AIConfig{
		Providers: map[string]config.ProviderConfig{
			"openai": {APIKey: "sk-test", BaseURL: srv.URL},
		},
	}, zap.NewNop())

	res := e.Extract(context.Background(), "some text", "made_up_mode", "openai")
	require.True(t, res.Success)
	require.True(t, strings.HasPrefix(captured.Messages[0].Content, "Analyze the following content:"))
}

func TestBuildPromptTruncatesContent(t *testing.T) {
	t.Parallel()

	e := New(config.AIConfig{
		Extraction: config.ExtractionConfig{MaxContentLength: 10},
	}, zap.NewNop())

	prompt := e.buildPrompt(strings.Repeat("x", 50), "content_summary")
	require.Contains(t, prompt, strings.Repeat("x", 10)+"...")
	require.NotContains(t, prompt, strings.Repeat("x", 11))
}

func TestBuildPromptTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	e := New(config.AIConfig{
		Extraction: config.ExtractionConfig{MaxContentLength: 4},
	}, zap.NewNop())

	// "ab" is 2 bytes; each kanji is 3. A byte cut at 4 would land inside 日.
	prompt := e.buildPrompt("ab日本語", "content_summary")
	require.True(t, utf8.ValidString(prompt))
	require.Contains(t, prompt, "ab...")
	require.NotContains(t, prompt, "日")
}

func TestAvailableProvidersFiltersUnconfigured(t *testing.T) {
	t.Parallel()

	e := New(config.AIConfig{
		Providers: map[string]config.ProviderConfig{
			"openai":    {APIKey: "sk-real"},
			"qwen":      {APIKey: "your-qwen-api-key-here"},
			"local_llm": {},
			"mystery":   {APIKey: "x"},
		},
	}, zap.NewNop())

	require.Equal(t, []string{"local_llm", "openai"}, e.AvailableProviders())
}

func TestAvailableModesSorted(t *testing.T) {
	t.Parallel()

	e := New(config.AIConfig{}, zap.NewNop())
	modes := e.AvailableModes()
	require.Contains(t, modes, "structured_data")
	require.Contains(t, modes, "content_summary")
	require.IsIncreasing(t, modes)
}
