// Package engine implements the per-job crawl-and-search state machine.
//
// One Engine owns one job for its whole run: it seeds the frontier with the
// job's URL, drives the fetch → extract → score pipeline breadth-first, and
// publishes a progress event for every state transition and every processed
// page. Fetches fan out through the shared pool; extraction, scoring and
// frontier mutation all happen on the engine's own goroutine, so per-job
// invariants (no duplicate enqueue, monotonic page counts) need no locks.
//
// Crawl scope is restricted to the seed's host: links leaving the origin are
// discarded during link discovery.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sitescout/sitescout/internal/frontier"
	"github.com/sitescout/sitescout/internal/progress"
	"github.com/sitescout/sitescout/internal/search"
)

// Config controls per-job behavior.
//   - Parallelism: max in-flight fetches for this job (default 4).
//   - MaxRuntime: overall budget before the job errors out (default 2m).
//   - MinRelevance: scores must exceed this to produce a Result (default 0,
//     i.e. at least one term occurrence).
type Config struct {
	Parallelism  int
	MaxRuntime   time.Duration
	MinRelevance float64
}

const (
	defaultParallelism = 4
	defaultMaxRuntime  = 2 * time.Minute
)

// Engine runs a single search job to a terminal state.
type Engine struct {
	job       search.Job
	cfg       Config
	pool      search.Fetcher
	extractor search.Extractor
	scorer    search.Scorer
	cache     search.ResultCache
	store     search.JobStore
	publisher progress.Publisher
	clock     search.Clock
	logger    *zap.Logger

	frontier  *frontier.Frontier
	cancelled atomic.Bool

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// New constructs an Engine owning job. The job must already exist in the
// store in the waiting state.
func New(
	job search.Job,
	cfg Config,
	pool search.Fetcher,
	extractor search.Extractor,
	scorer search.Scorer,
	cache search.ResultCache,
	store search.JobStore,
	publisher progress.Publisher,
	clock search.Clock,
	logger *zap.Logger,
) *Engine {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultParallelism
	}
	if cfg.MaxRuntime <= 0 {
		cfg.MaxRuntime = defaultMaxRuntime
	}
	if cache == nil {
		cache = noopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		job:       job,
		cfg:       cfg,
		pool:      pool,
		extractor: extractor,
		scorer:    scorer,
		cache:     cache,
		store:     store,
		publisher: publisher,
		clock:     clock,
		logger:    logger.With(zap.String("search_id", job.ID)),
		frontier:  frontier.New(),
	}
}

// Cancel requests prompt termination. In-flight fetches finish and are
// discarded; the job lands in the cancelled state.
func (e *Engine) Cancel() {
	e.cancelled.Store(true)
	e.cancelMu.Lock()
	cancel := e.cancel
	e.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run drives the job to a terminal state and returns the terminal error, if
// any. It blocks until done and must be called exactly once.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.MaxRuntime)
	e.cancelMu.Lock()
	e.cancel = cancel
	e.cancelMu.Unlock()
	defer cancel()
	if e.cancelled.Load() {
		cancel()
	}

	e.transition(search.StateWaiting, "")

	if !e.frontier.Push(e.job.Params.SeedURL, 0) {
		return e.fail(fmt.Sprintf("malformed seed URL %q", e.job.Params.SeedURL))
	}

	started := e.clock.Now()
	e.job.StartedAt = &started
	e.transition(search.StateSearching, "")

	if err := e.crawl(ctx); err != nil {
		var fatal *fatalError
		switch {
		case errors.As(err, &fatal):
			return e.fail(fatal.msg)
		case e.cancelled.Load(), errors.Is(err, context.Canceled):
			return e.finish(search.StateCancelled, "cancelled by caller")
		case errors.Is(err, context.DeadlineExceeded):
			return e.fail("job exceeded maximum runtime")
		default:
			return e.fail(err.Error())
		}
	}

	e.sortResults()
	return e.finish(search.StateCompleted, "")
}

// crawl processes the frontier breadth-first until no further fetch is
// dispatchable. It returns nil on normal exhaustion.
func (e *Engine) crawl(ctx context.Context) error {
	for e.frontier.Len() > 0 && e.job.PagesCrawled < e.job.Params.MaxPages {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := e.nextBatch()
		results := e.fetchBatch(ctx, batch)
		for i, entry := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			if results[i] == nil {
				// Served from cache, already accounted for.
				continue
			}
			if err := e.processPage(ctx, entry, *results[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// nextBatch pops entries sharing the head depth, capped by the remaining
// page budget and the per-job parallelism. Keeping a batch within one depth
// preserves strict breadth-first order under parallel fetching.
func (e *Engine) nextBatch() []search.FrontierEntry {
	budget := e.job.Params.MaxPages - e.job.PagesCrawled
	if budget > e.cfg.Parallelism {
		budget = e.cfg.Parallelism
	}
	first, ok := e.frontier.Pop()
	if !ok {
		return nil
	}
	batch := []search.FrontierEntry{first}
	for len(batch) < budget {
		next, ok := e.frontier.Peek()
		if !ok || next.Depth != first.Depth {
			break
		}
		e.frontier.Pop()
		batch = append(batch, next)
	}
	return batch
}

// fetchBatch fans the batch out through the shared pool. A nil slot marks an
// entry served from the cache without a fetch.
func (e *Engine) fetchBatch(ctx context.Context, batch []search.FrontierEntry) []*search.FetchResult {
	results := make([]*search.FetchResult, len(batch))
	g, fetchCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)
	for i, entry := range batch {
		if e.tryCache(ctx, entry) {
			continue
		}
		g.Go(func() error {
			res := e.pool.Fetch(fetchCtx, entry.URL)
			results[i] = &res
			return nil
		})
	}
	// Workers never return errors; failures ride on the FetchResult.
	_ = g.Wait()
	return results
}

// tryCache serves an entry from the result cache when the page's links would
// be discarded anyway (depth or page budget exhausted), so skipping the
// fetch cannot change what the crawl reaches.
func (e *Engine) tryCache(ctx context.Context, entry search.FrontierEntry) bool {
	if e.wantsLinks(entry) {
		return false
	}
	cached, err := e.cache.Get(ctx, entry.URL, e.job.Params.SearchTerm)
	if err != nil {
		return false
	}
	e.countPage()
	if cached.Relevance > e.cfg.MinRelevance {
		e.job.Results = append(e.job.Results, cached)
	}
	e.publishProgress()
	return true
}

func (e *Engine) wantsLinks(entry search.FrontierEntry) bool {
	return entry.Depth+1 <= e.job.Params.MaxDepth &&
		e.frontier.SeenCount() < e.job.Params.MaxPages
}

// processPage consumes one fetch result on the owning goroutine: count,
// extract, score, and feed discovered links back into the frontier.
func (e *Engine) processPage(ctx context.Context, entry search.FrontierEntry, res search.FetchResult) error {
	e.publishFetch(res)
	if res.Err != nil {
		// An unreachable seed is fatal; any later page failure is skipped.
		if e.job.PagesCrawled == 0 && entry.Depth == 0 {
			return &fatalError{msg: fmt.Sprintf("seed URL unreachable: %v", res.Err)}
		}
		e.countPage()
		e.publishProgress()
		return nil
	}

	e.countPage()

	doc, err := e.extractor.Extract(entry.URL, res.Body)
	if err != nil {
		e.logger.Debug("extraction failed, treating page as empty",
			zap.String("url", entry.URL), zap.Error(err))
		e.publishProgress()
		return nil
	}

	e.discoverLinks(entry, doc.Links)

	relevance, excerpt := e.scorer.Score(doc, e.job.Params.SearchTerm)
	result := search.Result{
		Title:     doc.Title,
		URL:       entry.URL,
		Context:   excerpt,
		Relevance: relevance,
	}
	if relevance > e.cfg.MinRelevance {
		e.job.Results = append(e.job.Results, result)
	}
	if err := e.cache.Put(ctx, entry.URL, e.job.Params.SearchTerm, result); err != nil {
		e.logger.Debug("result cache put failed", zap.Error(err))
	}

	e.publishProgress()
	return nil
}

// discoverLinks enqueues unseen same-host links one hop deeper, while the
// depth limit and the enqueued+visited page budget allow.
func (e *Engine) discoverLinks(entry search.FrontierEntry, links []string) {
	nextDepth := entry.Depth + 1
	if nextDepth > e.job.Params.MaxDepth {
		return
	}
	for _, link := range links {
		if e.frontier.SeenCount() >= e.job.Params.MaxPages {
			return
		}
		if !search.SameHost(e.job.Params.SeedURL, link) {
			continue
		}
		e.frontier.Push(link, nextDepth)
	}
}

func (e *Engine) countPage() {
	e.job.PagesCrawled++
}

// sortResults orders by descending relevance; ties keep discovery order.
func (e *Engine) sortResults() {
	sort.SliceStable(e.job.Results, func(i, j int) bool {
		return e.job.Results[i].Relevance > e.job.Results[j].Relevance
	})
}

func (e *Engine) fail(msg string) error {
	if err := e.finish(search.StateError, msg); err != nil {
		return err
	}
	return fmt.Errorf("job failed: %s", msg)
}

func (e *Engine) finish(state search.JobState, errText string) error {
	finished := e.clock.Now()
	e.job.FinishedAt = &finished
	e.transition(state, errText)
	return nil
}

// transition applies the state change, persists the job, and publishes
// exactly one event before any further processing continues.
func (e *Engine) transition(state search.JobState, errText string) {
	e.job.State = state
	e.job.ErrorText = errText
	e.persist()
	e.publish(progress.KindState)
}

func (e *Engine) publishProgress() {
	e.persist()
	e.publish(progress.KindProgress)
}

// publishFetch reports one completed network fetch to the sinks. Cache-served
// entries never reach here.
func (e *Engine) publishFetch(res search.FetchResult) {
	e.publisher.Publish(progress.Event{
		SearchID:         e.job.ID,
		Kind:             progress.KindFetch,
		Status:           e.job.State,
		PagesCrawled:     e.job.PagesCrawled,
		PagesTotal:       e.totalEstimate(),
		FetchStatusClass: progress.StatusClass(res.StatusCode),
		FetchDuration:    res.Duration,
		TS:               e.clock.Now().UTC(),
	})
}

func (e *Engine) persist() {
	// The store returns ErrNotFound only after eviction, which cannot
	// happen while retention exceeds the job runtime budget.
	if err := e.store.Update(context.Background(), e.job); err != nil {
		e.logger.Warn("persist job failed", zap.Error(err))
	}
}

func (e *Engine) publish(kind progress.Kind) {
	estimate := e.totalEstimate()
	pct := 0
	switch {
	case e.job.State == search.StateCompleted:
		pct = 100
	case estimate > 0:
		pct = e.job.PagesCrawled * 100 / estimate
		if pct > 100 {
			pct = 100
		}
	}
	e.publisher.Publish(progress.Event{
		SearchID:     e.job.ID,
		Kind:         kind,
		Status:       e.job.State,
		Progress:     pct,
		PagesCrawled: e.job.PagesCrawled,
		PagesTotal:   estimate,
		Error:        e.job.ErrorText,
		TS:           e.clock.Now().UTC(),
	})
}

// totalEstimate is the best current guess at how many pages the job will
// visit: everything seen so far, capped by the page budget.
func (e *Engine) totalEstimate() int {
	estimate := e.frontier.SeenCount()
	if estimate > e.job.Params.MaxPages {
		estimate = e.job.Params.MaxPages
	}
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}

type fatalError struct {
	msg string
}

func (f *fatalError) Error() string {
	return f.msg
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, string) (search.Result, error) {
	return search.Result{}, search.ErrNotFound
}

func (noopCache) Put(context.Context, string, string, search.Result) error {
	return nil
}
