// Package crawler fetches pages and converts them to markdown.
package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pagesift/pagesift/internal/config"
)

// Content source selectors.
const (
	SourceRaw     = "raw_html"
	SourceCleaned = "cleaned_html"
	SourceFit     = "fit_html"
)

// Page is the result of one crawl: the selected HTML variant and the
// markdown generated from it.
type Page struct {
	URL           string
	ContentSource string
	HTML          string
	Markdown      string
	FetchedAt     time.Time
}

// Fetcher retrieves the raw HTML for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Renderer retrieves HTML through a headless browser for script-driven pages.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Service sequences fetch, optional render, content selection and markdown
// conversion for a single URL.
type Service struct {
	cfg       config.CrawlConfig
	fetcher   Fetcher
	renderer  Renderer
	converter *markdownConverter
	logger    *zap.Logger
}

// NewService builds a crawl Service. renderer may be nil, in which case no
// headless escalation happens regardless of configuration.
func NewService(cfg config.CrawlConfig, fetcher Fetcher, renderer Renderer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:       cfg,
		fetcher:   fetcher,
		renderer:  renderer,
		converter: newMarkdownConverter(),
		logger:    logger,
	}
}

// Crawl fetches the URL once, escalates to headless rendering when the page
// looks script-driven, applies the content-source selector and converts the
// result to markdown. Every external call is attempted exactly once.
func (s *Service) Crawl(ctx context.Context, url, contentSource string) (Page, error) {
	if contentSource == "" {
		contentSource = s.cfg.DefaultContentSource
	}
	if contentSource == "" {
		contentSource = SourceCleaned
	}

	html, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", url, err)
	}

	if s.cfg.RenderEnabled && s.renderer != nil && needsRender(html) {
		s.logger.Info("page looks script-driven, rendering", zap.String("url", url))
		rendered, renderErr := s.renderer.Render(ctx, url)
		if renderErr != nil {
			s.logger.Warn("headless render failed, keeping fetched HTML",
				zap.String("url", url), zap.Error(renderErr))
		} else if strings.TrimSpace(rendered) != "" {
			html = rendered
		}
	}

	selected, err := selectContent(html, contentSource)
	if err != nil {
		s.logger.Warn("content selection failed, falling back to cleaned HTML",
			zap.String("source", contentSource), zap.Error(err))
		selected, err = selectContent(html, SourceCleaned)
		if err != nil {
			return Page{}, fmt.Errorf("select content: %w", err)
		}
	}

	markdown := s.converter.Convert(selected, url)
	if strings.TrimSpace(markdown) == "" {
		return Page{}, fmt.Errorf("page %s produced no markdown content", url)
	}

	return Page{
		URL:           url,
		ContentSource: contentSource,
		HTML:          selected,
		Markdown:      markdown,
		FetchedAt:     time.Now().UTC(),
	}, nil
}

const minStaticHTMLBytes = 2000

// renderKeywords mark frameworks that hydrate the page client-side.
var renderKeywords = []string{
	"__NEXT_DATA__",
	"data-reactroot",
	"ng-app",
	"window.__APOLLO_STATE__",
}

// needsRender is a cheap heuristic: tiny documents or well-known SPA markers
// suggest the static HTML is an empty shell.
func needsRender(html string) bool {
	if len(html) < minStaticHTMLBytes {
		return true
	}
	for _, kw := range renderKeywords {
		if strings.Contains(html, kw) {
			return true
		}
	}
	return false
}
