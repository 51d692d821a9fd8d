// Package collyfetcher implements the page fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/sitescout/sitescout/internal/search"
)

// Config controls collector behavior.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int
}

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxBodyBytes = 2 << 20
)

// Fetcher implements search.Fetcher using the Colly collector. Each call
// clones the base collector so per-fetch state never leaks between pages.
// It performs exactly one attempt per URL.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	transport := newHTTPTransport()
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.CheckHead = false
	c.WithTransport(transport)
	return &Fetcher{cfg: cfg, transport: transport, baseCollector: c}
}

// Fetch executes a single HTTP GET. Timeouts, non-2xx statuses, and
// non-HTML content types yield a FetchResult with Err set and no body.
func (f *Fetcher) Fetch(ctx context.Context, url string) search.FetchResult {
	result := search.FetchResult{URL: url}
	start := time.Now()

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.MaxBodySize = f.cfg.MaxBodyBytes
	collector.WithTransport(f.transport)

	var fetchErr error
	collector.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
		result.Body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
			result.ContentType = r.Headers.Get("Content-Type")
		}
		fetchErr = err
	})

	if err := f.visit(ctx, collector, url); err != nil {
		fetchErr = err
	}
	result.Duration = time.Since(start)

	switch {
	case fetchErr != nil:
		result.Body = nil
		result.Err = fetchErr
	case result.StatusCode < 200 || result.StatusCode >= 300:
		result.Body = nil
		result.Err = fmt.Errorf("unexpected status %d", result.StatusCode)
	case !isHTML(result.ContentType):
		result.Body = nil
		result.Err = fmt.Errorf("unsupported content type %q", result.ContentType)
	}
	return result
}

func (f *Fetcher) visit(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		var alreadyVisited *colly.AlreadyVisitedError
		if err != nil && !errors.As(err, &alreadyVisited) {
			return fmt.Errorf("visit: %w", err)
		}
		return nil
	}
}

func isHTML(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
