package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/sitescout/sitescout/internal/search"
)

// Kind distinguishes state transitions from progress increments.
type Kind string

// Supported event kinds. Fetch events feed sinks only; subscribers and the
// latest-snapshot replay see states and progress ticks.
const (
	KindState    Kind = "state"
	KindProgress Kind = "progress"
	KindFetch    Kind = "fetch"
)

// Event captures one snapshot of a job's progress. Events are ephemeral;
// only the latest one per job is retained for replay.
type Event struct {
	// SearchID identifies the job this event belongs to.
	SearchID string `json:"search_id"`
	// Kind tells sinks whether this is a lifecycle transition or a
	// per-page progress tick.
	Kind Kind `json:"type"`
	// Status is the job state at emit time.
	Status search.JobState `json:"current_status"`
	// Progress is a 0-100 integer derived from pages crawled over the
	// current total estimate.
	Progress int `json:"progress"`
	// PagesCrawled counts pages fetched so far, failures included.
	PagesCrawled int `json:"pages_crawled"`
	// PagesTotal is the current estimate of pages this job will visit.
	PagesTotal int `json:"pages_total"`
	// Error carries the failure message on error-state events.
	Error string `json:"error,omitempty"`
	// FetchStatusClass buckets the HTTP status of a fetch event ("2xx",
	// "4xx"); transport failures report "error".
	FetchStatusClass string `json:"fetch_status_class,omitempty"`
	// FetchDuration is the wall time of the fetch on fetch events.
	FetchDuration time.Duration `json:"fetch_duration,omitempty"`
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time `json:"timestamp"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.SearchID == "" {
		return errors.New("search id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Kind {
	case KindState, KindProgress:
	case KindFetch:
		if e.FetchStatusClass == "" {
			return errors.New("fetch events need a status class")
		}
	default:
		return errors.New("unknown event kind")
	}
	if e.Progress < 0 || e.Progress > 100 {
		return errors.New("progress must be within 0-100")
	}
	return nil
}

// Terminal reports whether this event announces a terminal job state.
func (e Event) Terminal() bool {
	return e.Kind == KindState && e.Status.Terminal()
}

// StatusClass buckets an HTTP status code for metric labels. Codes outside
// 100-599, including the zero code of transport failures, map to "error".
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "error"
	}
	return fmt.Sprintf("%dxx", code/100)
}
