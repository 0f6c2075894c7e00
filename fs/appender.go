// Package fs provides an append-only file sink for crawl records.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fwojciec/sitecrawl"
)

// Output formats.
const (
	FormatText  = "text"
	FormatJSONL = "jsonl"
)

// Ensure Appender implements sitecrawl.Sink at compile time.
var _ sitecrawl.Sink = (*Appender)(nil)

// Appender writes one line per record. In text format each line is
// "url, title"; in jsonl format each line is a JSON object.
// Appender is safe for concurrent use; lines are never interleaved.
type Appender struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	format string

	// Now returns the time stamped on records without one. Defaults to time.Now.
	Now func() time.Time
}

// NewAppender returns an Appender writing to w.
func NewAppender(w io.Writer, format string) (*Appender, error) {
	if format == "" {
		format = FormatText
	}
	switch format {
	case FormatText, FormatJSONL:
	default:
		return nil, sitecrawl.Errorf(sitecrawl.EINVALID, "unknown output format %q", format)
	}
	return &Appender{w: w, format: format, Now: time.Now}, nil
}

// OpenAppender opens path for appending, creating it and its parent
// directories if needed.
func OpenAppender(path, format string) (*Appender, error) {
	if path == "" {
		return nil, sitecrawl.Errorf(sitecrawl.EINVALID, "output path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	a, err := NewAppender(f, format)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// Append writes record as a single line.
func (a *Appender) Append(ctx context.Context, record *sitecrawl.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	var line []byte
	switch a.format {
	case FormatJSONL:
		if record.CrawledAt.IsZero() {
			record.CrawledAt = a.Now().UTC()
		}
		b, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		line = append(b, '\n')
	default:
		line = []byte(record.URL + ", " + record.Title + "\n")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.w.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close closes the underlying file when the Appender owns it.
func (a *Appender) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
