package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

// CollyFetcher fetches single pages using a Colly collector.
type CollyFetcher struct {
	userAgent string
	timeout   time.Duration
	base      *colly.Collector
}

// NewCollyFetcher builds a fetcher with the given user agent and per-request
// timeout.
func NewCollyFetcher(userAgent string, timeout time.Duration) *CollyFetcher {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true // user-directed single fetch, not a crawl frontier
	return &CollyFetcher{
		userAgent: userAgent,
		timeout:   timeout,
		base:      c,
	}
}

// Fetch executes one HTTP GET and returns the response body as a string.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) (string, error) {
	collector := f.base.Clone()
	if f.userAgent != "" {
		collector.UserAgent = f.userAgent
	}
	timeout := f.timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	var (
		body     string
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("visit: %w", err)
		}
	}
	if fetchErr != nil {
		return "", fetchErr
	}
	if body == "" {
		return "", fmt.Errorf("empty response body")
	}
	return body, nil
}
