// Package cache memoizes scored pages across jobs so repeat searches of the
// same site and term skip re-scoring unchanged pages.
package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/sitescout/sitescout/internal/search"
)

const keyPrefix = "search_cache:"

// Key builds the cache key for a normalized URL and term. Terms are
// lowercased so the cache is case-insensitive like the scorer.
func Key(url, term string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, url, strings.ToLower(term))
}

// Noop satisfies search.ResultCache while caching nothing. It is the default
// when no cache backend is configured.
type Noop struct{}

// Get always misses.
func (Noop) Get(context.Context, string, string) (search.Result, error) {
	return search.Result{}, search.ErrNotFound
}

// Put discards the result.
func (Noop) Put(context.Context, string, string, search.Result) error {
	return nil
}
