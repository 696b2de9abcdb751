// Package api exposes the HTTP interface for the crawl service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pagesift/pagesift/internal/config"
	"github.com/pagesift/pagesift/internal/crawler"
	"github.com/pagesift/pagesift/internal/extract"
	"github.com/pagesift/pagesift/internal/metrics"
	"github.com/pagesift/pagesift/internal/publisher"
	"github.com/pagesift/pagesift/internal/storage"
	"github.com/pagesift/pagesift/internal/store"
)

// crawlEventsTopic names the Pub/Sub topic completion events go to.
const crawlEventsTopic = "crawl-events"

// Crawler fetches a URL and converts it to markdown.
type Crawler interface {
	Crawl(ctx context.Context, url, contentSource string) (crawler.Page, error)
}

// Extractor runs LLM extraction calls and reports the registry contents.
type Extractor interface {
	Extract(ctx context.Context, content, mode, provider string) extract.Result
	AvailableModes() []string
	AvailableProviders() []string
	DefaultMode() string
	DefaultProvider() string
}

// Server wires HTTP handlers to the crawl pipeline and stores.
type Server struct {
	router    chi.Router
	crawler   Crawler
	extractor Extractor
	blobs     storage.BlobStore
	tasks     store.TaskStore
	events    publisher.Publisher
	cfg       config.Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewServer constructs a Server with middleware and routes. events may be
// nil when no message bus is configured.
func NewServer(
	crawlSvc Crawler,
	extractor Extractor,
	blobs storage.BlobStore,
	tasks store.TaskStore,
	events publisher.Publisher,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		crawler:   crawlSvc,
		extractor: extractor,
		blobs:     blobs,
		tasks:     tasks,
		events:    events,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}

	metrics.Init()

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(time.Duration(cfg.Server.TimeoutSeconds) * time.Second))

	r.Get("/health", s.health)
	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Get("/providers", s.listProviders)
	r.Get("/modes", s.listModes)

	r.Group(func(r chi.Router) {
		if cfg.Server.APIKey != "" {
			r.Use(apiKeyMiddleware(cfg.Server.APIKey))
		}
		r.Post("/crawl", s.crawl)
		r.Get("/crawl_simple", s.crawlSimple)
		r.Route("/api", func(r chi.Router) {
			r.Get("/", s.apiIndex)
			r.Get("/history", s.history)
			r.Get("/files/{task_id}", s.listFiles)
			r.Get("/preview/{file_id}", s.preview)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.cfg.App.Name,
		"version": s.cfg.App.Version,
	})
}

func (s *Server) listProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": s.extractor.AvailableProviders(),
		"default":   s.extractor.DefaultProvider(),
	})
}

func (s *Server) listModes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"modes":   s.extractor.AvailableModes(),
		"default": s.extractor.DefaultMode(),
	})
}

func (s *Server) apiIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": s.cfg.App.Name,
		"version": s.cfg.App.Version,
		"endpoints": map[string]string{
			"POST /crawl":                "crawl a URL, run AI extraction and optionally persist artifacts",
			"GET /crawl_simple":          "crawl via query parameters (url, content_source, ai_modes, save_files)",
			"GET /health":                "liveness probe",
			"GET /providers":             "configured AI providers",
			"GET /modes":                 "available extraction modes",
			"GET /api/history":           "persisted crawl tasks, newest first",
			"GET /api/files/{task_id}":   "stored artifacts for a task",
			"GET /api/preview/{file_id}": "artifact content preview",
			"GET /metrics":               "Prometheus metrics",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
