package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pagesift/pagesift/internal/config"
)

// defaultPrompts mirror the built-in extraction modes when the configuration
// carries no prompt table of its own. Each template receives the (truncated)
// page content via the {content} placeholder.
var defaultPrompts = map[string]string{
	"structured_data": "Extract the structured data from the following content and return it as JSON:\n\n{content}",
	"content_summary": "Summarize the main points and core information of the following content:\n\n{content}",
	"key_points":      "Extract the key points from the following content as a list:\n\n{content}",
	"entities":        "Identify and extract the entities (people, places, organizations) in the following content:\n\n{content}",
	"sentiment":       "Analyze the sentiment and tone of the following content:\n\n{content}",
}

const genericPrompt = "Analyze the following content:\n\n{content}"

const defaultMaxContentLength = 4000

// Extractor dispatches extraction calls to the configured LLM providers.
// It holds no state between calls beyond the loaded configuration.
type Extractor struct {
	cfg        config.AIConfig
	prompts    map[string]string
	maxContent int
	strategies map[string]strategy
	client     *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// New builds an Extractor from the AI configuration section.
func New(cfg config.AIConfig, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	prompts := cfg.Extraction.Prompts
	if len(prompts) == 0 {
		prompts = defaultPrompts
	}
	maxContent := cfg.Extraction.MaxContentLength
	if maxContent <= 0 {
		maxContent = defaultMaxContentLength
	}
	return &Extractor{
		cfg:        cfg,
		prompts:    prompts,
		maxContent: maxContent,
		strategies: defaultStrategies(),
		client:     &http.Client{},
		logger:     logger,
		now:        time.Now,
	}
}

// Extract runs one extraction call. An empty mode selects the configured
// default mode; an empty provider selects the configured default provider.
// All failures are reported through the envelope; Extract never panics or
// returns an error value, and no call is ever retried.
func (e *Extractor) Extract(ctx context.Context, content, mode, provider string) Result {
	if mode == "" {
		mode = e.cfg.Extraction.DefaultMode
	}
	if mode == "" {
		mode = "structured_data"
	}
	if provider == "" {
		provider = e.cfg.DefaultProvider
	}

	strat, ok := e.strategies[provider]
	if !ok {
		return errorResult(mode, provider, fmt.Sprintf("unsupported provider: %s", provider))
	}
	settings := e.cfg.Providers[provider]

	if strat.requiresCredential() && !credentialConfigured(settings.APIKey) {
		e.logger.Warn("provider credential not configured, skipping extraction",
			zap.String("provider", provider))
		return errorResult(mode, provider, fmt.Sprintf("provider %s credential not configured", provider))
	}

	prompt := e.buildPrompt(content, mode)

	callCtx, cancel := context.WithTimeout(ctx, strat.timeout(settings))
	defer cancel()

	req, err := strat.buildRequest(callCtx, settings, prompt)
	if err != nil {
		return errorResult(mode, provider, err.Error())
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Error("provider call failed",
			zap.String("provider", provider), zap.String("mode", mode), zap.Error(err))
		return errorResult(mode, provider, err.Error())
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errorResult(mode, provider, fmt.Sprintf("read provider response: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.Error("provider returned non-2xx",
			zap.String("provider", provider), zap.Int("status", resp.StatusCode))
		return errorResult(mode, provider,
			fmt.Sprintf("provider request failed: status %d", resp.StatusCode))
	}

	text, err := strat.parseResponse(body)
	if err != nil {
		return errorResult(mode, provider, err.Error())
	}

	e.logger.Info("extraction succeeded",
		zap.String("provider", provider), zap.String("mode", mode))
	return successResult(mode, provider, text, e.now())
}

// AvailableModes returns the configured prompt template keys, sorted.
func (e *Extractor) AvailableModes() []string {
	modes := make([]string, 0, len(e.prompts))
	for mode := range e.prompts {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	return modes
}

// AvailableProviders returns the configured providers whose required
// credential (if any) is present and not a placeholder, sorted.
func (e *Extractor) AvailableProviders() []string {
	providers := make([]string, 0, len(e.cfg.Providers))
	for name, settings := range e.cfg.Providers {
		strat, ok := e.strategies[name]
		if !ok {
			continue
		}
		if strat.requiresCredential() && !credentialConfigured(settings.APIKey) {
			continue
		}
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}

// DefaultMode exposes the configured default extraction mode.
func (e *Extractor) DefaultMode() string {
	if e.cfg.Extraction.DefaultMode != "" {
		return e.cfg.Extraction.DefaultMode
	}
	return "structured_data"
}

// DefaultProvider exposes the configured default provider.
func (e *Extractor) DefaultProvider() string {
	return e.cfg.DefaultProvider
}

// buildPrompt renders the mode's template with the hard-capped content. An
// unregistered mode falls back to the generic template.
func (e *Extractor) buildPrompt(content, mode string) string {
	template, ok := e.prompts[mode]
	if !ok || template == "" {
		template = genericPrompt
	}
	if len(content) > e.maxContent {
		cut := e.maxContent
		// Back up so the cap never splits a multi-byte rune.
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut] + "..."
		e.logger.Info("content truncated for prompt", zap.Int("max_length", e.maxContent))
	}
	return strings.ReplaceAll(template, "{content}", content)
}

// credentialConfigured rejects empty keys and the documented placeholder
// values (e.g. "your-openai-api-key-here").
func credentialConfigured(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	if strings.HasPrefix(key, "your-") && strings.HasSuffix(key, "-here") {
		return false
	}
	return true
}
