package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validDoc() map[string]any {
	return map[string]any{
		"app": map[string]any{
			"name":    "pagesift",
			"version": "1.0.0",
		},
		"server": map[string]any{
			"port":            8080,
			"timeout_seconds": 300,
		},
		"database": map[string]any{
			"host":     "localhost",
			"port":     5432,
			"name":     "pagesift",
			"username": "svc",
			"password": "pw",
			"pool": map[string]any{
				"size":         5,
				"max_overflow": 5,
			},
		},
		"storage": map[string]any{
			"provider": "gcs",
			"endpoint": "localhost:9000",
			"buckets": map[string]any{
				"default":  "pagesift-files",
				"markdown": "pagesift-markdown",
			},
		},
		"ai": map[string]any{
			"default_provider": "openai",
			"providers": map[string]any{
				"openai": map[string]any{
					"api_key":     "sk-real-key",
					"base_url":    "https://api.openai.com/v1",
					"max_tokens":  2000,
					"temperature": 0.1,
				},
				"local_llm": map[string]any{
					"base_url": "http://localhost:11434",
				},
			},
			"extraction": map[string]any{
				"max_content_length": 4000,
			},
		},
		"crawl": map[string]any{
			"content_sources": []any{"raw_html", "cleaned_html", "fit_html"},
			"timeout":         map[string]any{"fetch": 30, "render": 25},
		},
		"logging": map[string]any{
			"level": "info",
		},
	}
}

func TestValidateAllAcceptsValidDocument(t *testing.T) {
	t.Parallel()

	v := NewValidator(zap.NewNop())
	require.True(t, v.ValidateAll(validDoc()))
	require.Empty(t, v.Errors())
	require.Empty(t, v.Warnings())
}

func TestValidateAllRequiresDatabaseAndStorage(t *testing.T) {
	t.Parallel()

	doc := validDoc()
	delete(doc, "database")
	delete(doc, "storage")

	v := NewValidator(zap.NewNop())
	require.False(t, v.ValidateAll(doc))
	errs := strings.Join(v.Errors(), "; ")
	require.Contains(t, errs, "'database'")
	require.Contains(t, errs, "'storage'")
}

func TestValidateAllCollectsErrors(t *testing.T) {
	t.Parallel()

	doc := validDoc()
	doc["server"].(map[string]any)["port"] = 99999
	doc["database"].(map[string]any)["port"] = 0
	doc["storage"].(map[string]any)["endpoint"] = "no-port"
	doc["storage"].(map[string]any)["buckets"].(map[string]any)["markdown"] = "Bad_Bucket!"
	doc["logging"].(map[string]any)["level"] = "verbose"

	v := NewValidator(zap.NewNop())
	require.False(t, v.ValidateAll(doc))
	require.Len(t, v.Errors(), 5)
}

func TestMissingAPIKeyIsWarningNotError(t *testing.T) {
	t.Parallel()

	doc := validDoc()
	providers := doc["ai"].(map[string]any)["providers"].(map[string]any)
	delete(providers["openai"].(map[string]any), "api_key")

	v := NewValidator(zap.NewNop())
	require.True(t, v.ValidateAll(doc), "missing credential must not block validity")
	require.NotEmpty(t, v.Warnings())
	require.Contains(t, strings.Join(v.Warnings(), "; "), "openai")
}

func TestLocalLLMNeedsNoCredential(t *testing.T) {
	t.Parallel()

	v := NewValidator(zap.NewNop())
	require.True(t, v.ValidateAll(validDoc()))
	for _, w := range v.Warnings() {
		require.NotContains(t, w, "local_llm")
	}
}

func TestValidateAllResetsStateBetweenCalls(t *testing.T) {
	t.Parallel()

	v := NewValidator(zap.NewNop())

	doc := validDoc()
	delete(doc, "database")
	require.False(t, v.ValidateAll(doc))
	require.NotEmpty(t, v.Errors())

	require.True(t, v.ValidateAll(validDoc()))
	require.Empty(t, v.Errors())
}

func TestValidateAIProviderBounds(t *testing.T) {
	t.Parallel()

	doc := validDoc()
	openai := doc["ai"].(map[string]any)["providers"].(map[string]any)["openai"].(map[string]any)
	openai["temperature"] = 2.5
	openai["max_tokens"] = 0
	openai["base_url"] = "not a url"

	v := NewValidator(zap.NewNop())
	require.False(t, v.ValidateAll(doc))
	require.Len(t, v.Errors(), 3)
}

func TestValidateCrawlWarnsOnUnknownSource(t *testing.T) {
	t.Parallel()

	doc := validDoc()
	doc["crawl"].(map[string]any)["content_sources"] = []any{"raw_html", "shadow_dom"}

	v := NewValidator(zap.NewNop())
	require.True(t, v.ValidateAll(doc))
	require.Contains(t, strings.Join(v.Warnings(), "; "), "shadow_dom")
}

func TestBucketNameRules(t *testing.T) {
	t.Parallel()

	require.True(t, isValidBucketName("pagesift-files"))
	require.True(t, isValidBucketName("abc"))
	require.False(t, isValidBucketName("ab"))
	require.False(t, isValidBucketName("UPPER"))
	require.False(t, isValidBucketName("-leading"))
	require.False(t, isValidBucketName("trailing-"))
	require.False(t, isValidBucketName(strings.Repeat("a", 64)))
}

func TestEndpointRules(t *testing.T) {
	t.Parallel()

	require.True(t, isValidEndpoint("localhost:9000"))
	require.True(t, isValidEndpoint("10.0.0.5:5432"))
	require.False(t, isValidEndpoint("localhost"))
	require.False(t, isValidEndpoint("localhost:abc"))
	require.False(t, isValidEndpoint("localhost:0"))
}
