package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sitescout/sitescout/internal/progress"
	"github.com/sitescout/sitescout/internal/search"
)

// PrometheusSink exports job progress metrics. It owns all collectors for
// jobs started/completed/running, the pages-crawled counter, and the
// per-fetch outcome counters.
type PrometheusSink struct {
	jobsStarted   prometheus.Counter
	jobsCompleted *prometheus.CounterVec
	jobsRunning   prometheus.Gauge
	pagesCrawled  prometheus.Counter
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	mu      sync.Mutex
	running map[string]struct{}
	pages   map[string]int
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitescout_jobs_started_total",
			Help: "Total search jobs that have started crawling.",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitescout_jobs_completed_total",
			Help: "Total search jobs finished, partitioned by result.",
		}, []string{"result"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitescout_jobs_running",
			Help: "Current number of running search jobs.",
		}),
		pagesCrawled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitescout_pages_crawled_total",
			Help: "Total pages fetched across all jobs, failures included.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitescout_fetches_total",
			Help: "Fetch completions partitioned by HTTP status class.",
		}, []string{"status_class"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sitescout_fetch_duration_seconds",
			Help:    "Fetch duration partitioned by HTTP status class.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"status_class"}),
		running: make(map[string]struct{}),
		pages:   make(map[string]int),
	}
	collectors := []prometheus.Collector{
		s.jobsStarted, s.jobsCompleted, s.jobsRunning, s.pagesCrawled,
		s.fetches, s.fetchDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates counters from the event stream. Page counts arrive as
// absolute values per job, so the sink tracks the last seen count to derive
// deltas.
func (s *PrometheusSink) Consume(_ context.Context, evt progress.Event) error {
	if evt.Kind == progress.KindFetch {
		s.fetches.WithLabelValues(evt.FetchStatusClass).Inc()
		s.fetchDuration.WithLabelValues(evt.FetchStatusClass).
			Observe(evt.FetchDuration.Seconds())
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if delta := evt.PagesCrawled - s.pages[evt.SearchID]; delta > 0 {
		s.pagesCrawled.Add(float64(delta))
		s.pages[evt.SearchID] = evt.PagesCrawled
	}

	if evt.Kind != progress.KindState {
		return nil
	}
	switch {
	case evt.Status == search.StateSearching:
		if _, seen := s.running[evt.SearchID]; !seen {
			s.running[evt.SearchID] = struct{}{}
			s.jobsStarted.Inc()
			s.jobsRunning.Inc()
		}
	case evt.Status.Terminal():
		if _, seen := s.running[evt.SearchID]; seen {
			delete(s.running, evt.SearchID)
			s.jobsRunning.Dec()
		}
		delete(s.pages, evt.SearchID)
		s.jobsCompleted.WithLabelValues(string(evt.Status)).Inc()
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
