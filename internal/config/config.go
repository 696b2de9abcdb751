// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	AI       AIConfig       `mapstructure:"ai"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig identifies the running service.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	APIKey         string `mapstructure:"api_key"`
}

// DatabaseConfig controls access to the relational database.
type DatabaseConfig struct {
	Provider string     `mapstructure:"provider"`
	Host     string     `mapstructure:"host"`
	Port     int        `mapstructure:"port"`
	Name     string     `mapstructure:"name"`
	Username string     `mapstructure:"username"`
	Password string     `mapstructure:"password"`
	SSLMode  string     `mapstructure:"sslmode"`
	Table    string     `mapstructure:"table"`
	Pool     PoolConfig `mapstructure:"pool"`
}

// PoolConfig sizes the database connection pool.
type PoolConfig struct {
	Size        int `mapstructure:"size"`
	MaxOverflow int `mapstructure:"max_overflow"`
}

// DSN builds a Postgres connection string from the section fields.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.Username), url.QueryEscape(d.Password),
		d.Host, d.Port, d.Name, sslmode)
}

// MaxConns returns the pool cap: base size plus overflow headroom.
func (p PoolConfig) MaxConns() int32 {
	total := p.Size + p.MaxOverflow
	if total <= 0 {
		return 4
	}
	return int32(total)
}

// StorageConfig selects and parameterizes the blob storage backend.
type StorageConfig struct {
	Provider string            `mapstructure:"provider"`
	Endpoint string            `mapstructure:"endpoint"`
	Buckets  map[string]string `mapstructure:"buckets"`
}

// BucketFor maps an artifact type to its configured bucket, falling back to
// the default bucket when the type has no dedicated entry.
func (s StorageConfig) BucketFor(fileType string) string {
	if b, ok := s.Buckets[fileType]; ok && b != "" {
		return b
	}
	if b, ok := s.Buckets["default"]; ok && b != "" {
		return b
	}
	return "pagesift-files"
}

// AIConfig holds the provider registry settings and extraction templates.
type AIConfig struct {
	DefaultProvider string                    `mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `mapstructure:"providers"`
	Extraction      ExtractionConfig          `mapstructure:"extraction"`
}

// ProviderConfig parameterizes a single LLM HTTP API.
type ProviderConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	APIVersion     string  `mapstructure:"api_version"`
	DeploymentName string  `mapstructure:"deployment_name"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// ExtractionConfig names the prompt templates and the default mode.
type ExtractionConfig struct {
	DefaultMode      string            `mapstructure:"default_mode"`
	Prompts          map[string]string `mapstructure:"prompts"`
	MaxContentLength int               `mapstructure:"max_content_length"`
}

// CrawlConfig governs page fetching and markdown generation.
type CrawlConfig struct {
	UserAgent            string `mapstructure:"user_agent"`
	DefaultContentSource string `mapstructure:"default_content_source"`
	FetchTimeoutSeconds  int    `mapstructure:"fetch_timeout_seconds"`
	RenderEnabled        bool   `mapstructure:"render_enabled"`
	RenderTimeoutSeconds int    `mapstructure:"render_timeout_seconds"`
}

// FetchTimeout converts the fetch timeout into a duration.
func (c CrawlConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// RenderTimeout converts the render timeout into a duration.
func (c CrawlConfig) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutSeconds) * time.Second
}

// PubSubConfig names the completion-event topic. Both fields empty means
// events stay in-process.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment. An empty path falls back to
// the default search locations; a missing file is then tolerated and the
// defaults plus environment apply.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAGESIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, &ConfigError{Op: "read", Path: path, Err: err}
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pagesift/")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, &ConfigError{Op: "read", Path: "config", Err: err}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, &ConfigError{Op: "unmarshal", Path: v.ConfigFileUsed(), Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pagesift")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 300)
	v.SetDefault("database.provider", "postgres")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.table", "crawl_tasks")
	v.SetDefault("database.pool.size", 5)
	v.SetDefault("database.pool.max_overflow", 5)
	v.SetDefault("storage.provider", "gcs")
	v.SetDefault("storage.buckets.default", "pagesift-files")
	v.SetDefault("storage.buckets.markdown", "pagesift-markdown")
	v.SetDefault("storage.buckets.json", "pagesift-json")
	v.SetDefault("storage.buckets.ai_results", "pagesift-ai-results")
	v.SetDefault("ai.default_provider", "openai")
	v.SetDefault("ai.extraction.default_mode", "structured_data")
	v.SetDefault("ai.extraction.max_content_length", 4000)
	v.SetDefault("crawl.user_agent", "pagesift/0.1 (+https://github.com/pagesift/pagesift)")
	v.SetDefault("crawl.default_content_source", "cleaned_html")
	v.SetDefault("crawl.fetch_timeout_seconds", 30)
	v.SetDefault("crawl.render_enabled", false)
	v.SetDefault("crawl.render_timeout_seconds", 25)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits. Failures here are
// fatal at startup; per-section advisory checks live in the Validator.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.TimeoutSeconds <= 0 {
		return fmt.Errorf("server.timeout_seconds must be > 0")
	}
	switch c.Database.Provider {
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" || c.Database.Username == "" {
			return fmt.Errorf("database host, name and username are required for the postgres provider")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("database.port must be in [1, 65535], got %d", c.Database.Port)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database provider: %s", c.Database.Provider)
	}
	switch c.Storage.Provider {
	case "gcs", "memory":
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	if c.Crawl.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("crawl.fetch_timeout_seconds must be > 0")
	}
	if c.Crawl.RenderEnabled && c.Crawl.RenderTimeoutSeconds <= 0 {
		return fmt.Errorf("crawl.render_timeout_seconds must be > 0 when rendering is enabled")
	}
	for name, p := range c.AI.Providers {
		if p.Temperature < 0 || p.Temperature > 2 {
			return fmt.Errorf("ai.providers.%s.temperature must be in [0, 2], got %v", name, p.Temperature)
		}
		if p.MaxTokens < 0 {
			return fmt.Errorf("ai.providers.%s.max_tokens must be >= 0", name)
		}
	}
	return nil
}
