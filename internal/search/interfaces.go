package search

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores and caches for unknown or expired keys.
var ErrNotFound = errors.New("not found")

// Fetcher retrieves a single page. Implementations enforce the per-fetch
// timeout and content-type filtering; they must not retry.
type Fetcher interface {
	Fetch(ctx context.Context, url string) FetchResult
}

// Extractor turns a fetched HTML body into a Document. Malformed markup
// degrades to a best-effort Document rather than an error.
type Extractor interface {
	Extract(pageURL string, body []byte) (Document, error)
}

// Scorer computes the relevance of a document for a term. A zero score means
// the page contributes no Result. Scoring must be deterministic.
type Scorer interface {
	Score(doc Document, term string) (relevance float64, excerpt string)
}

// JobStore holds jobs by id with bounded retention. Reads of terminal jobs
// are safe from any goroutine; writes come only from the owning engine.
type JobStore interface {
	Create(ctx context.Context, job Job) error
	Update(ctx context.Context, job Job) error
	Get(ctx context.Context, jobID string) (Job, error)
}

// ResultCache memoizes scored pages across jobs, keyed by normalized URL and
// lowercased term. A miss is reported as ErrNotFound.
type ResultCache interface {
	Get(ctx context.Context, url, term string) (Result, error)
	Put(ctx context.Context, url, term string, res Result) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces search ids.
type IDGenerator interface {
	NewID() (string, error)
}
