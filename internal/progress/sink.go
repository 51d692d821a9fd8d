package progress

import "context"

// Sink consumes every event published through the Broker, independent of any
// per-job subscribers. Implementations must be safe for concurrent use and
// honor ctx deadlines.
type Sink interface {
	Consume(ctx context.Context, evt Event) error
	Close(ctx context.Context) error
}

// Publisher publishes individual events; Broker satisfies this interface so
// engines stay agnostic about fan-out and retention.
type Publisher interface {
	Publish(evt Event)
}
