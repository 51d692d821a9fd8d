package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/progress"
)

// LogSink writes every event to a zap logger. State transitions log at Info,
// per-page ticks at Debug.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink constructs a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the event.
func (s *LogSink) Consume(_ context.Context, evt progress.Event) error {
	if evt.Kind == progress.KindFetch {
		s.logger.Debug("fetch finished",
			zap.String("search_id", evt.SearchID),
			zap.String("status_class", evt.FetchStatusClass),
			zap.Duration("duration", evt.FetchDuration))
		return nil
	}
	fields := []zap.Field{
		zap.String("search_id", evt.SearchID),
		zap.String("status", string(evt.Status)),
		zap.Int("progress", evt.Progress),
		zap.Int("pages_crawled", evt.PagesCrawled),
	}
	if evt.Error != "" {
		fields = append(fields, zap.String("error", evt.Error))
	}
	if evt.Kind == progress.KindState {
		s.logger.Info("job state changed", fields...)
	} else {
		s.logger.Debug("job progress", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
