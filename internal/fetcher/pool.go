// Package fetcher provides the shared bounded-concurrency fetch pool.
package fetcher

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sitescout/sitescout/internal/search"
)

// Pool caps in-flight fetches across all jobs and applies per-host rate
// limiting before delegating to the underlying Fetcher. Slot acquisition is
// FIFO, so no job starves indefinitely waiting for a slot.
type Pool struct {
	fetcher search.Fetcher
	slots   *semaphore.Weighted
	limiter *HostLimiter
	logger  *zap.Logger
}

// NewPool wraps fetcher with a worker limit. A nil limiter disables
// politeness delays.
func NewPool(fetcher search.Fetcher, workers int, limiter *HostLimiter, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		fetcher: fetcher,
		slots:   semaphore.NewWeighted(int64(workers)),
		limiter: limiter,
		logger:  logger,
	}
}

// Fetch blocks for a pool slot and the host's rate budget, then performs the
// fetch. Cancellation while waiting is reported as a fetch error on the
// result, keeping the failure skippable for the caller.
func (p *Pool) Fetch(ctx context.Context, rawURL string) search.FetchResult {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return search.FetchResult{URL: rawURL, Err: fmt.Errorf("acquire fetch slot: %w", err)}
	}
	defer p.slots.Release(1)

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, hostOf(rawURL)); err != nil {
			return search.FetchResult{URL: rawURL, Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	result := p.fetcher.Fetch(ctx, rawURL)
	if result.Err != nil {
		p.logger.Debug("fetch failed",
			zap.String("url", rawURL),
			zap.Int("status", result.StatusCode),
			zap.Error(result.Err),
		)
	}
	return result
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
