package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagesift/pagesift/internal/config"
	memorypublisher "github.com/pagesift/pagesift/internal/publisher/memory"
	memorystorage "github.com/pagesift/pagesift/internal/storage/memory"
	memorystore "github.com/pagesift/pagesift/internal/store/memory"
)

func memoryConfig() config.Config {
	return config.Config{
		App:      config.AppConfig{Name: "pagesift", Version: "test"},
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 8080, TimeoutSeconds: 30},
		Database: config.DatabaseConfig{Provider: "memory"},
		Storage:  config.StorageConfig{Provider: "memory"},
		Crawl:    config.CrawlConfig{FetchTimeoutSeconds: 5},
		Logging:  config.LoggingConfig{Development: true, Level: "error"},
	}
}

func TestBuildWithMemoryBackends(t *testing.T) {
	a, err := Build(context.Background(), memoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NotNil(t, a.apiServer)
	require.IsType(t, &memorystorage.BlobStore{}, a.blobs)
	require.IsType(t, &memorystore.TaskStore{}, a.tasks)
	require.IsType(t, &memorypublisher.Publisher{}, a.events)
	require.Nil(t, a.renderer, "renderer stays off unless enabled")
}

func TestBuildUsesPubSubOnlyWhenFullyConfigured(t *testing.T) {
	cfg := memoryConfig()
	cfg.PubSub = config.PubSubConfig{ProjectID: "proj"}

	// Topic missing: falls back to the in-memory publisher.
	a, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.IsType(t, &memorypublisher.Publisher{}, a.events)
}
