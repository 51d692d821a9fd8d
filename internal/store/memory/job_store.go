// Package memory provides the in-memory job store with bounded retention.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sitescout/sitescout/internal/search"
)

// ErrJobExists is returned when creating a job whose id is already present.
var ErrJobExists = errors.New("job already exists")

// Config bounds store growth.
//   - Retention: jobs older than this are swept (default 1h).
//   - MaxJobs: capacity cap; creating beyond it evicts the oldest terminal
//     jobs first (default 1000).
//   - SweepInterval: how often the janitor runs (default 1m).
type Config struct {
	Retention     time.Duration
	MaxJobs       int
	SweepInterval time.Duration
}

const (
	defaultRetention     = time.Hour
	defaultMaxJobs       = 1000
	defaultSweepInterval = time.Minute
)

// JobStore holds jobs by id. Terminal jobs are immutable, so concurrent
// reads are safe; writes come only from each job's owning engine.
type JobStore struct {
	cfg Config

	mu   sync.RWMutex
	jobs map[string]search.Job

	stopCh  chan struct{}
	once    sync.Once
	evicted func(jobID string)
}

// NewJobStore constructs a JobStore and starts its janitor goroutine.
// onEvict, if non-nil, is invoked (outside the store lock) for every job
// removed by retention or capacity eviction.
func NewJobStore(cfg Config, onEvict func(jobID string)) *JobStore {
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = defaultMaxJobs
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	s := &JobStore{
		cfg:     cfg,
		jobs:    make(map[string]search.Job),
		stopCh:  make(chan struct{}),
		evicted: onEvict,
	}
	go s.janitor()
	return s
}

// Create stores a new job.
func (s *JobStore) Create(_ context.Context, job search.Job) error {
	var dropped []string
	s.mu.Lock()
	if _, exists := s.jobs[job.ID]; exists {
		s.mu.Unlock()
		return ErrJobExists
	}
	if len(s.jobs) >= s.cfg.MaxJobs {
		dropped = s.evictOldestLocked(len(s.jobs) - s.cfg.MaxJobs + 1)
	}
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.notifyEvicted(dropped)
	return nil
}

// Update replaces the stored job. Only the owning engine calls this.
func (s *JobStore) Update(_ context.Context, job search.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return search.ErrNotFound
	}
	s.jobs[job.ID] = job
	return nil
}

// Get fetches a job by id. Expired or evicted jobs report ErrNotFound.
func (s *JobStore) Get(_ context.Context, jobID string) (search.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return search.Job{}, search.ErrNotFound
	}
	return job, nil
}

// Close stops the janitor.
func (s *JobStore) Close() {
	s.once.Do(func() {
		close(s.stopCh)
	})
}

func (s *JobStore) janitor() {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(time.Now())
		case <-s.stopCh:
			return
		}
	}
}

func (s *JobStore) sweep(now time.Time) {
	cutoff := now.Add(-s.cfg.Retention)
	var dropped []string
	s.mu.Lock()
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			dropped = append(dropped, id)
		}
	}
	s.mu.Unlock()
	s.notifyEvicted(dropped)
}

// evictOldestLocked removes n jobs, preferring terminal ones, oldest first.
// Running jobs are only taken when no terminal job remains.
func (s *JobStore) evictOldestLocked(n int) []string {
	type candidate struct {
		id       string
		created  time.Time
		terminal bool
	}
	candidates := make([]candidate, 0, len(s.jobs))
	for id, job := range s.jobs {
		candidates = append(candidates, candidate{
			id:       id,
			created:  job.CreatedAt,
			terminal: job.State.Terminal(),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].terminal != candidates[j].terminal {
			return candidates[i].terminal
		}
		return candidates[i].created.Before(candidates[j].created)
	})
	dropped := make([]string, 0, n)
	for _, c := range candidates {
		if len(dropped) == n {
			break
		}
		delete(s.jobs, c.id)
		dropped = append(dropped, c.id)
	}
	return dropped
}

func (s *JobStore) notifyEvicted(ids []string) {
	if s.evicted == nil {
		return
	}
	for _, id := range ids {
		s.evicted(id)
	}
}
