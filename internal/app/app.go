// Package app assembles the service from its configured backends.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pagesift/pagesift/internal/api"
	"github.com/pagesift/pagesift/internal/config"
	"github.com/pagesift/pagesift/internal/crawler"
	"github.com/pagesift/pagesift/internal/extract"
	"github.com/pagesift/pagesift/internal/logging"
	"github.com/pagesift/pagesift/internal/publisher"
	memorypublisher "github.com/pagesift/pagesift/internal/publisher/memory"
	gcppublisher "github.com/pagesift/pagesift/internal/publisher/pubsub"
	"github.com/pagesift/pagesift/internal/storage"
	gcsstorage "github.com/pagesift/pagesift/internal/storage/gcs"
	memorystorage "github.com/pagesift/pagesift/internal/storage/memory"
	"github.com/pagesift/pagesift/internal/store"
	memorystore "github.com/pagesift/pagesift/internal/store/memory"
	pgstore "github.com/pagesift/pagesift/internal/store/postgres"
)

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	apiServer *api.Server

	blobs    storage.BlobStore
	tasks    store.TaskStore
	events   publisher.Publisher
	renderer *crawler.ChromedpRenderer
}

// Build creates the application's dependencies from the configuration.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	logger.Info("building application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.Int("port", cfg.Server.Port))

	a := &App{cfg: cfg, logger: logger}

	if err := a.setupStorage(ctx); err != nil {
		return nil, err
	}
	if err := a.setupDatabase(ctx); err != nil {
		return nil, err
	}
	if err := a.setupPublisher(ctx); err != nil {
		return nil, err
	}

	crawlSvc, err := a.setupCrawler()
	if err != nil {
		return nil, err
	}

	extractor := extract.New(cfg.AI, logger.Named("extract"))

	a.apiServer = api.NewServer(
		crawlSvc,
		extractor,
		a.blobs,
		a.tasks,
		a.events,
		cfg,
		logger.Named("api"),
	)
	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled or a
// termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	return a.Close()
}

// Close releases all backend clients.
func (a *App) Close() error {
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.tasks != nil {
		a.tasks.Close()
	}
	if a.blobs != nil {
		if err := a.blobs.Close(); err != nil {
			a.logger.Warn("blob store close failed", zap.Error(err))
		}
	}
	if closer, ok := a.events.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn("publisher close failed", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) setupStorage(ctx context.Context) error {
	switch a.cfg.Storage.Provider {
	case "gcs":
		a.logger.Info("using GCS storage backend")
		buckets := make([]string, 0, len(a.cfg.Storage.Buckets))
		seen := make(map[string]struct{})
		for _, b := range a.cfg.Storage.Buckets {
			if _, ok := seen[b]; ok || b == "" {
				continue
			}
			seen[b] = struct{}{}
			buckets = append(buckets, b)
		}
		blobs, err := gcsstorage.New(ctx, buckets, a.logger.Named("gcs"))
		if err != nil {
			return fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.blobs = blobs
	default:
		a.logger.Info("using in-memory storage backend")
		a.blobs = memorystorage.New()
	}
	return nil
}

func (a *App) setupDatabase(ctx context.Context) error {
	switch a.cfg.Database.Provider {
	case "postgres":
		tasks, err := pgstore.New(ctx, pgstore.Config{
			DSN:      a.cfg.Database.DSN(),
			MaxConns: a.cfg.Database.Pool.MaxConns(),
		})
		if err != nil {
			return fmt.Errorf("task store init failed: %w", err)
		}
		if err := tasks.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("schema init failed: %w", err)
		}
		a.logger.Info("postgres task store initialized",
			zap.String("host", a.cfg.Database.Host),
			zap.String("database", a.cfg.Database.Name))
		a.tasks = tasks
	default:
		a.logger.Info("using in-memory task store")
		a.tasks = memorystore.New()
	}
	return nil
}

func (a *App) setupPublisher(ctx context.Context) error {
	if a.cfg.PubSub.ProjectID == "" || a.cfg.PubSub.Topic == "" {
		a.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		a.events = memorypublisher.New()
		return nil
	}
	pub, err := gcppublisher.New(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.Topic))
	a.events = pub
	return nil
}

func (a *App) setupCrawler() (*crawler.Service, error) {
	fetcher := crawler.NewCollyFetcher(a.cfg.Crawl.UserAgent, a.cfg.Crawl.FetchTimeout())
	a.logger.Info("using colly fetcher", zap.String("user_agent", a.cfg.Crawl.UserAgent))

	var renderer crawler.Renderer
	if a.cfg.Crawl.RenderEnabled {
		chromedpRenderer, err := crawler.NewChromedpRenderer(
			a.cfg.Crawl.UserAgent, a.cfg.Crawl.RenderTimeout(), a.logger.Named("renderer"))
		if err != nil {
			a.logger.Warn("headless renderer init failed, continuing without rendering", zap.Error(err))
		} else {
			a.renderer = chromedpRenderer
			renderer = chromedpRenderer
			a.logger.Info("headless renderer enabled",
				zap.Duration("timeout", a.cfg.Crawl.RenderTimeout()))
		}
	}
	return crawler.NewService(a.cfg.Crawl, fetcher, renderer, a.logger.Named("crawler")), nil
}
