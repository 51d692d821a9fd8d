package fetcher

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter manages per-host token buckets so the crawler never hammers a
// single origin. Limiters are created lazily on first sight of a host.
type HostLimiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// LimiterConfig holds rate limiter configuration.
type LimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// NewHostLimiter creates a HostLimiter. Non-positive values fall back to
// 2 rps with a burst of 5.
func NewHostLimiter(cfg LimiterConfig) *HostLimiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return &HostLimiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(cfg.RequestsPerSecond),
		defaultBurst: cfg.Burst,
	}
}

// Wait blocks until the host's bucket has a token or ctx ends.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if err := l.limiterFor(host).Wait(ctx); err != nil {
		return fmt.Errorf("wait for %q: %w", host, err)
	}
	return nil
}

func (l *HostLimiter) limiterFor(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.limiters[host] = lim
	}
	return lim
}
