package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls broker buffering and snapshot retention.
//   - SubscriberBuffer: per-subscriber channel capacity (default 64).
//   - SinkBuffer: size of the internal sink channel (default 1024).
//   - Retention: how long the latest snapshot of a finished job is kept
//     for late subscribers (default 1h).
//   - SinkTimeout: per-sink timeout while consuming (default 5s).
//   - Logger: optional structured logger used for warnings.
type Config struct {
	SubscriberBuffer int
	SinkBuffer       int
	Retention        time.Duration
	SinkTimeout      time.Duration
	Logger           *zap.Logger
}

const (
	defaultSubscriberBuffer = 64
	defaultSinkBuffer       = 1024
	defaultRetention        = time.Hour
	defaultSinkTimeout      = 5 * time.Second
	sweepInterval           = time.Minute
)

// Broker fans events out to per-job subscribers and to registered sinks.
// It is safe for concurrent use by many jobs and many subscribers, and
// Publish never blocks the publishing engine.
type Broker struct {
	cfg   Config
	sinks []Sink

	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	latest map[string]retainedEvent

	events chan Event
	stopCh chan struct{}
	doneCh chan struct{}
	closed atomic.Bool
	once   sync.Once
	logger *zap.Logger
}

type retainedEvent struct {
	evt Event
	at  time.Time
}

type subscriber struct {
	ch     chan Event
	closed bool
}

// NewBroker initializes a Broker and starts the background sink/janitor
// goroutine. The returned Broker is immediately ready to accept events.
func NewBroker(cfg Config, sinks ...Sink) *Broker {
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = defaultSubscriberBuffer
	}
	if cfg.SinkBuffer <= 0 {
		cfg.SinkBuffer = defaultSinkBuffer
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Broker{
		cfg:    cfg,
		sinks:  append([]Sink(nil), sinks...),
		subs:   make(map[string]map[*subscriber]struct{}),
		latest: make(map[string]retainedEvent),
		events: make(chan Event, cfg.SinkBuffer),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: logger,
	}
	go b.run()
	return b
}

// Publish records evt as the job's latest snapshot, delivers it to every
// subscriber of the job, and hands it to the sinks. A terminal event closes
// all subscriber streams for the job after delivery. Fetch events bypass
// the snapshot and subscribers entirely. Invalid events are discarded.
func (b *Broker) Publish(evt Event) {
	if b == nil || b.closed.Load() {
		return
	}
	if err := evt.Validate(); err != nil {
		b.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}

	if evt.Kind != KindFetch {
		b.mu.Lock()
		b.latest[evt.SearchID] = retainedEvent{evt: evt, at: time.Now()}
		for sub := range b.subs[evt.SearchID] {
			sub.send(evt)
		}
		if evt.Terminal() {
			for sub := range b.subs[evt.SearchID] {
				sub.close()
			}
			delete(b.subs, evt.SearchID)
		}
		b.mu.Unlock()
	}

	select {
	case b.events <- evt:
	default:
		b.logger.Warn("progress event dropped before sinks due to backpressure",
			zap.String("search_id", evt.SearchID))
	}
}

// Subscribe returns a live stream of events for the job and a cancel
// function. The latest known snapshot, if any, is replayed first; when that
// snapshot is already terminal the stream is closed right after it. The
// stream also closes once the job publishes its terminal event.
func (b *Broker) Subscribe(searchID string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, b.cfg.SubscriberBuffer)}

	b.mu.Lock()
	defer b.mu.Unlock()

	if held, ok := b.latest[searchID]; ok {
		sub.send(held.evt)
		if held.evt.Terminal() {
			sub.close()
			return sub.ch, func() {}
		}
	}
	group, ok := b.subs[searchID]
	if !ok {
		group = make(map[*subscriber]struct{})
		b.subs[searchID] = group
	}
	group[sub] = struct{}{}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if group, ok := b.subs[searchID]; ok {
			delete(group, sub)
			if len(group) == 0 {
				delete(b.subs, searchID)
			}
		}
		sub.close()
	}
	return sub.ch, cancel
}

// Latest returns the most recent snapshot published for the job.
func (b *Broker) Latest(searchID string) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	held, ok := b.latest[searchID]
	return held.evt, ok
}

// Forget drops the retained snapshot for a job, typically when the job store
// evicts it.
func (b *Broker) Forget(searchID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.latest, searchID)
}

// Close stops the background goroutine, flushes pending sink events, closes
// the sinks, and closes every open subscriber stream. Safe to call multiple
// times.
func (b *Broker) Close(ctx context.Context) error {
	if b == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	b.once.Do(func() {
		b.closed.Store(true)
		close(b.stopCh)

		b.mu.Lock()
		for _, group := range b.subs {
			for sub := range group {
				sub.close()
			}
		}
		b.subs = make(map[string]map[*subscriber]struct{})
		b.mu.Unlock()
	})
	select {
	case <-b.doneCh:
		b.closeSinks(ctx)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("progress broker close wait: %w", ctx.Err())
	}
}

func (b *Broker) run() {
	defer close(b.doneCh)
	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()
	for {
		select {
		case evt := <-b.events:
			b.consume(evt)
		case <-sweep.C:
			b.pruneLatest()
		case <-b.stopCh:
			b.drain()
			return
		}
	}
}

func (b *Broker) drain() {
	for {
		select {
		case evt := <-b.events:
			b.consume(evt)
		default:
			return
		}
	}
}

func (b *Broker) consume(evt Event) {
	for _, sink := range b.sinks {
		if sink == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), b.cfg.SinkTimeout)
		if err := sink.Consume(ctx, evt); err != nil {
			b.logger.Warn("progress sink consume failed", zap.Error(err))
		}
		cancel()
	}
}

func (b *Broker) closeSinks(ctx context.Context) {
	for _, sink := range b.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Close(ctx); err != nil {
			b.logger.Warn("progress sink close failed", zap.Error(err))
		}
	}
}

func (b *Broker) pruneLatest() {
	cutoff := time.Now().Add(-b.cfg.Retention)
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, held := range b.latest {
		if held.at.Before(cutoff) {
			delete(b.latest, id)
		}
	}
}

// send delivers without blocking; when the buffer is full the oldest event
// is discarded so the newest snapshot always wins.
func (s *subscriber) send(evt Event) {
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- evt:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

func (s *subscriber) close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
