// Package dispatcher tracks running search jobs and fans them out to engines.
package dispatcher

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sitescout/sitescout/internal/search"
)

// ErrShuttingDown is returned by Start once Shutdown has begun.
var ErrShuttingDown = errors.New("dispatcher is shutting down")

// ErrJobRunning is returned when starting a job id that is already tracked.
var ErrJobRunning = errors.New("job is already running")

// Engine is the per-job runner the dispatcher supervises.
type Engine interface {
	// Run drives the job to a terminal state. Called exactly once.
	Run(ctx context.Context) error
	// Cancel requests prompt termination of a running job.
	Cancel()
}

// Factory builds an Engine for one job.
type Factory func(job search.Job) Engine

// Config bounds the dispatcher.
//   - MaxConcurrentJobs: jobs past this limit queue in the waiting state
//     until a slot frees up (default 8).
type Config struct {
	MaxConcurrentJobs int
	Logger            *zap.Logger
}

const defaultMaxConcurrentJobs = 8

// Dispatcher owns the registry of live jobs. Each Start spawns a goroutine
// that runs the job's engine behind a concurrency semaphore; the entry is
// dropped from the registry when the engine returns.
type Dispatcher struct {
	factory Factory
	slots   *semaphore.Weighted
	logger  *zap.Logger

	baseCtx context.Context
	stopAll context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	running  map[string]Engine
	stopping bool
}

// New creates a Dispatcher.
func New(factory Factory, cfg Config) *Dispatcher {
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = defaultMaxConcurrentJobs
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		factory: factory,
		slots:   semaphore.NewWeighted(int64(cfg.MaxConcurrentJobs)),
		logger:  cfg.Logger,
		baseCtx: ctx,
		stopAll: cancel,
		running: make(map[string]Engine),
	}
}

// Start registers the job and launches its engine in the background. The
// engine may queue for a slot first; the job stays in the waiting state until
// one frees up.
func (d *Dispatcher) Start(job search.Job) error {
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		return ErrShuttingDown
	}
	if _, dup := d.running[job.ID]; dup {
		d.mu.Unlock()
		return ErrJobRunning
	}
	eng := d.factory(job)
	d.running[job.ID] = eng
	d.wg.Add(1)
	d.mu.Unlock()

	go d.run(job.ID, eng)
	return nil
}

func (d *Dispatcher) run(jobID string, eng Engine) {
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		delete(d.running, jobID)
		d.mu.Unlock()
	}()

	// A failed acquire means shutdown; the engine still runs with the
	// cancelled context so the job reaches a terminal state and event.
	if err := d.slots.Acquire(d.baseCtx, 1); err == nil {
		defer d.slots.Release(1)
	}

	if err := eng.Run(d.baseCtx); err != nil {
		d.logger.Info("job finished with error",
			zap.String("search_id", jobID), zap.Error(err))
		return
	}
	d.logger.Debug("job finished", zap.String("search_id", jobID))
}

// Cancel requests termination of a running job. It reports false when the
// job is not currently tracked (unknown, or already terminal).
func (d *Dispatcher) Cancel(jobID string) bool {
	d.mu.Lock()
	eng, ok := d.running[jobID]
	d.mu.Unlock()
	if !ok {
		return false
	}
	eng.Cancel()
	return true
}

// Running returns the number of tracked jobs, queued ones included.
func (d *Dispatcher) Running() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.running)
}

// Shutdown cancels every live job and waits for their engines to finish, up
// to ctx's deadline.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.stopping = true
	d.mu.Unlock()
	d.stopAll()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
