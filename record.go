package sitecrawl

import (
	"context"
	"time"
)

// Record is the persisted form of a matching document.
type Record struct {
	ID          string    `json:"id,omitempty"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	ContentHash string    `json:"contentHash,omitempty"`
	CrawledAt   time.Time `json:"crawledAt"`
}

// Validate returns an error if the record contains invalid fields.
func (r *Record) Validate() error {
	if r.URL == "" {
		return Errorf(EINVALID, "record URL required")
	}
	return nil
}

// Sink persists records. Sinks are append-only and best-effort: the
// crawler reports failures but never stops because of them.
type Sink interface {
	Append(ctx context.Context, record *Record) error
}

// RecordService represents a service for reading persisted records.
type RecordService interface {
	Sink

	// FindRecords retrieves records matching the filter, newest first.
	FindRecords(ctx context.Context, filter RecordFilter) ([]*Record, error)
}

// RecordFilter represents a filter for FindRecords.
type RecordFilter struct {
	URL *string `json:"url"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
