package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/sitecrawl"
)

// Ensure LoggingSink implements sitecrawl.Sink.
var _ sitecrawl.Sink = (*LoggingSink)(nil)

// LoggingSink wraps a Sink with debug logging.
type LoggingSink struct {
	next   sitecrawl.Sink
	logger *slog.Logger
}

// NewLoggingSink creates a new LoggingSink.
func NewLoggingSink(next sitecrawl.Sink, logger *slog.Logger) *LoggingSink {
	return &LoggingSink{next: next, logger: logger}
}

// Append delegates to the wrapped sink and logs the write.
func (s *LoggingSink) Append(ctx context.Context, record *sitecrawl.Record) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("append record",
			"url", record.URL,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Append(ctx, record)
}
