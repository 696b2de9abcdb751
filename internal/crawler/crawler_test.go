package crawler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pagesift/pagesift/internal/config"
)

var articleHTML = `<!DOCTYPE html>
<html><head><title>Test</title><script>var tracking = true;</script></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Go Generics</h1>
<p>Type parameters arrived in <strong>Go 1.18</strong>.</p>
<ul><li>constraints</li><li>inference</li></ul>
</article>
<footer>Copyright</footer>
</body></html>` + strings.Repeat("<!-- padding -->", 200)

type stubFetcher struct {
	html string
	err  error
}

func (f *stubFetcher) Fetch(context.Context, string) (string, error) {
	return f.html, f.err
}

type stubRenderer struct {
	html   string
	err    error
	called bool
}

func (r *stubRenderer) Render(context.Context, string) (string, error) {
	r.called = true
	return r.html, r.err
}

func TestCrawlProducesMarkdown(t *testing.T) {
	t.Parallel()

	svc := NewService(config.CrawlConfig{}, &stubFetcher{html: articleHTML}, nil, zap.NewNop())

	page, err := svc.Crawl(context.Background(), "https://example.com/post", SourceCleaned)
	require.NoError(t, err)
	require.Equal(t, SourceCleaned, page.ContentSource)
	require.Contains(t, page.Markdown, "# Go Generics")
	require.Contains(t, page.Markdown, "**Go 1.18**")
	require.Contains(t, page.Markdown, "- constraints")
	require.NotContains(t, page.Markdown, "tracking")
	require.NotContains(t, page.HTML, "<script>")
}

func TestCrawlFitSourceNarrowsToArticle(t *testing.T) {
	t.Parallel()

	svc := NewService(config.CrawlConfig{}, &stubFetcher{html: articleHTML}, nil, zap.NewNop())

	page, err := svc.Crawl(context.Background(), "https://example.com", SourceFit)
	require.NoError(t, err)
	require.Contains(t, page.Markdown, "Go Generics")
	require.NotContains(t, page.Markdown, "Copyright")
	require.NotContains(t, page.Markdown, "Home")
}

func TestCrawlRawSourceKeepsEverything(t *testing.T) {
	t.Parallel()

	svc := NewService(config.CrawlConfig{}, &stubFetcher{html: articleHTML}, nil, zap.NewNop())

	page, err := svc.Crawl(context.Background(), "https://example.com", SourceRaw)
	require.NoError(t, err)
	require.Contains(t, page.HTML, "<script>")
	require.Contains(t, page.Markdown, "Go Generics")
}

func TestCrawlDefaultsContentSource(t *testing.T) {
	t.Parallel()

	svc := NewService(config.CrawlConfig{DefaultContentSource: SourceFit},
		&stubFetcher{html: articleHTML}, nil, zap.NewNop())

	page, err := svc.Crawl(context.Background(), "https://example.com", "")
	require.NoError(t, err)
	require.Equal(t, SourceFit, page.ContentSource)
}

func TestCrawlUnknownSourceFallsBackToCleaned(t *testing.T) {
	t.Parallel()

	svc := NewService(config.CrawlConfig{}, &stubFetcher{html: articleHTML}, nil, zap.NewNop())

	page, err := svc.Crawl(context.Background(), "https://example.com", "shadow_dom")
	require.NoError(t, err)
	require.Contains(t, page.Markdown, "Go Generics")
}

func TestCrawlFetchErrorPropagates(t *testing.T) {
	t.Parallel()

	svc := NewService(config.CrawlConfig{},
		&stubFetcher{err: errors.New("dns failure")}, nil, zap.NewNop())

	_, err := svc.Crawl(context.Background(), "https://down.example.com", SourceCleaned)
	require.Error(t, err)
	require.Contains(t, err.Error(), "dns failure")
}

func TestCrawlEscalatesToRendererForSPAShell(t *testing.T) {
	t.Parallel()

	shell := `<html><body><div id="root"></div><script>window.__APOLLO_STATE__={}</script></body></html>`
	renderer := &stubRenderer{html: articleHTML}
	svc := NewService(config.CrawlConfig{RenderEnabled: true},
		&stubFetcher{html: shell}, renderer, zap.NewNop())

	page, err := svc.Crawl(context.Background(), "https://spa.example.com", SourceCleaned)
	require.NoError(t, err)
	require.True(t, renderer.called)
	require.Contains(t, page.Markdown, "Go Generics")
}

func TestCrawlKeepsFetchedHTMLWhenRenderFails(t *testing.T) {
	t.Parallel()

	shell := `<html><body><article><p>static fallback text</p></article></body></html>`
	renderer := &stubRenderer{err: errors.New("browser crashed")}
	svc := NewService(config.CrawlConfig{RenderEnabled: true},
		&stubFetcher{html: shell}, renderer, zap.NewNop())

	page, err := svc.Crawl(context.Background(), "https://spa.example.com", SourceCleaned)
	require.NoError(t, err)
	require.True(t, renderer.called)
	require.Contains(t, page.Markdown, "static fallback text")
}

func TestCrawlSkipsRendererForStaticPages(t *testing.T) {
	t.Parallel()

	renderer := &stubRenderer{html: "<html><body>should not be used</body></html>"}
	svc := NewService(config.CrawlConfig{RenderEnabled: true},
		&stubFetcher{html: articleHTML}, renderer, zap.NewNop())

	_, err := svc.Crawl(context.Background(), "https://example.com", SourceCleaned)
	require.NoError(t, err)
	require.False(t, renderer.called)
}

func TestNeedsRenderHeuristic(t *testing.T) {
	t.Parallel()

	require.True(t, needsRender("<html></html>"), "tiny document")
	big := strings.Repeat("a", minStaticHTMLBytes)
	require.False(t, needsRender(big))
	require.True(t, needsRender(big+"__NEXT_DATA__"))
	require.True(t, needsRender(big+"data-reactroot"))
}
