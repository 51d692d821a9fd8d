package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/sitescout/sitescout/internal/progress"
	"github.com/sitescout/sitescout/internal/search"
)

func stateEvent(id string, state search.JobState, crawled int) progress.Event {
	return progress.Event{
		SearchID:     id,
		Kind:         progress.KindState,
		Status:       state,
		PagesCrawled: crawled,
		TS:           time.Now().UTC(),
	}
}

func progressEvent(id string, crawled int) progress.Event {
	return progress.Event{
		SearchID:     id,
		Kind:         progress.KindProgress,
		Status:       search.StateSearching,
		PagesCrawled: crawled,
		TS:           time.Now().UTC(),
	}
}

func fetchEvent(id, class string, d time.Duration) progress.Event {
	return progress.Event{
		SearchID:         id,
		Kind:             progress.KindFetch,
		Status:           search.StateSearching,
		FetchStatusClass: class,
		FetchDuration:    d,
		TS:               time.Now().UTC(),
	}
}

func TestPrometheusSinkCountsFetchOutcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, sink.Consume(ctx, fetchEvent("a", "2xx", 40*time.Millisecond)))
	require.NoError(t, sink.Consume(ctx, fetchEvent("a", "2xx", 120*time.Millisecond)))
	require.NoError(t, sink.Consume(ctx, fetchEvent("a", "error", 0)))

	require.Equal(t, float64(2), testutil.ToFloat64(sink.fetches.WithLabelValues("2xx")))
	require.Equal(t, float64(1), testutil.ToFloat64(sink.fetches.WithLabelValues("error")))
	// One histogram series per observed status class.
	require.Equal(t, 2, testutil.CollectAndCount(sink.fetchDuration))

	// Fetch events carry no page counts, so the crawled total stays put.
	require.Equal(t, float64(0), testutil.ToFloat64(sink.pagesCrawled))
}

func TestPrometheusSinkTracksJobLifecycle(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, sink.Consume(ctx, stateEvent("a", search.StateSearching, 0)))
	require.NoError(t, sink.Consume(ctx, stateEvent("b", search.StateSearching, 0)))
	require.Equal(t, float64(2), testutil.ToFloat64(sink.jobsRunning))
	require.Equal(t, float64(2), testutil.ToFloat64(sink.jobsStarted))

	require.NoError(t, sink.Consume(ctx, progressEvent("a", 3)))
	require.NoError(t, sink.Consume(ctx, progressEvent("a", 5)))
	require.NoError(t, sink.Consume(ctx, progressEvent("b", 2)))
	require.Equal(t, float64(7), testutil.ToFloat64(sink.pagesCrawled))

	require.NoError(t, sink.Consume(ctx, stateEvent("a", search.StateCompleted, 5)))
	require.NoError(t, sink.Consume(ctx, stateEvent("b", search.StateError, 2)))
	require.Equal(t, float64(0), testutil.ToFloat64(sink.jobsRunning))
	require.Equal(t, float64(1), testutil.ToFloat64(
		sink.jobsCompleted.WithLabelValues("completed")))
	require.Equal(t, float64(1), testutil.ToFloat64(
		sink.jobsCompleted.WithLabelValues("error")))
}

// TestPrometheusSinkIgnoresStalePageCounts ensures an out-of-order event
// with a lower count never decrements the counter.
func TestPrometheusSinkIgnoresStalePageCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, sink.Consume(ctx, progressEvent("a", 4)))
	require.NoError(t, sink.Consume(ctx, progressEvent("a", 2)))
	require.Equal(t, float64(4), testutil.ToFloat64(sink.pagesCrawled))
}

func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
