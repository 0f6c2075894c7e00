package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/sitecrawl"
)

// NewEventLogger returns an EventFunc that logs crawl events.
// Retries and terminal failures log at warn, sink failures at error,
// persisted records at info and discoveries at debug.
func NewEventLogger(logger *slog.Logger) sitecrawl.EventFunc {
	return func(e sitecrawl.Event) {
		ctx := context.Background()
		switch e.Type {
		case sitecrawl.EventDiscovered:
			logger.DebugContext(ctx, "discovered", "url", e.URL)
		case sitecrawl.EventRetry:
			logger.WarnContext(ctx, "retrying fetch",
				"url", e.URL,
				"attempt", e.Attempt,
				"delay", e.Delay,
				"err", e.Err,
			)
		case sitecrawl.EventFetchFailed:
			attrs := []any{"url", e.URL, "attempts", e.Attempt, "err", e.Err}
			if e.Status != 0 {
				attrs = append(attrs, "status", e.Status)
			}
			logger.WarnContext(ctx, "fetch failed", attrs...)
		case sitecrawl.EventParseFailed:
			logger.WarnContext(ctx, "parse failed", "url", e.URL, "err", e.Err)
		case sitecrawl.EventPersisted:
			logger.InfoContext(ctx, "persisted", "url", e.URL, "title", e.Title)
		case sitecrawl.EventSinkFailed:
			logger.ErrorContext(ctx, "sink failed", "url", e.URL, "err", e.Err)
		}
	}
}
