// Package search defines core types shared across subsystems.
package search

import (
	"time"
)

// JobState represents the lifecycle state of a search job.
type JobState string

// Job state values held in the job store. Completed, Error and Cancelled are
// terminal: no transition is defined out of them.
const (
	StateWaiting   JobState = "waiting"
	StateSearching JobState = "searching"
	StateCompleted JobState = "completed"
	StateError     JobState = "error"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	switch s {
	case StateCompleted, StateError, StateCancelled:
		return true
	default:
		return false
	}
}

// JobParams captures the per-job knobs requested by the client. All fields
// are fixed at job creation.
type JobParams struct {
	SeedURL    string `json:"seed_url"`
	SearchTerm string `json:"search_term"`
	MaxPages   int    `json:"max_pages"`
	MaxDepth   int    `json:"max_depth"`
}

// Job is the unit of work created per search request. Mutable fields are
// owned by the running engine; once the state turns terminal the job is
// frozen and safe for concurrent reads.
type Job struct {
	ID           string     `json:"id"`
	Params       JobParams  `json:"params"`
	State        JobState   `json:"state"`
	PagesCrawled int        `json:"pages_crawled"`
	Results      []Result   `json:"results"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	ErrorText    string     `json:"error_text,omitempty"`
}

// Result is one scored page, appended to Job.Results by the owning engine.
type Result struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Context   string  `json:"context"`
	Relevance float64 `json:"relevance"`
}

// FrontierEntry tags a discovered URL with its link distance from the seed.
type FrontierEntry struct {
	URL   string
	Depth int
}

// FetchResult is the transient outcome of fetching one page. A failed fetch
// carries Err and no body; it is skippable, never fatal to the job.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	Duration    time.Duration
	Err         error
}

// Document is the extractor's view of one fetched page.
type Document struct {
	Title           string
	MetaDescription string
	Headings        []string
	Text            string
	Links           []string
}
