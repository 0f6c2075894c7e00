package sitecrawl

import "time"

// EventType identifies a crawl diagnostic event.
type EventType int

const (
	EventDiscovered EventType = iota
	EventRetry
	EventFetchFailed
	EventParseFailed
	EventPersisted
	EventSinkFailed
)

// String returns a short name for the event type.
func (t EventType) String() string {
	switch t {
	case EventDiscovered:
		return "discovered"
	case EventRetry:
		return "retry"
	case EventFetchFailed:
		return "fetch_failed"
	case EventParseFailed:
		return "parse_failed"
	case EventPersisted:
		return "persisted"
	case EventSinkFailed:
		return "sink_failed"
	default:
		return "unknown"
	}
}

// Event reports something that happened to a single URL.
// Observing events never alters crawl control flow.
type Event struct {
	Type EventType
	URL  string

	// Attempt is the 1-indexed retry number for EventRetry, or the number
	// of attempts made for EventFetchFailed.
	Attempt int
	Delay   time.Duration
	Status  int
	Title   string
	Err     error
}

// EventFunc is a callback for crawl diagnostics.
type EventFunc func(Event)

// Events fans a single event out to every non-nil callback in order.
func Events(fns ...EventFunc) EventFunc {
	return func(e Event) {
		for _, fn := range fns {
			if fn != nil {
				fn(e)
			}
		}
	}
}
