package crawl

import (
	"context"
	"time"

	"github.com/fwojciec/sitecrawl"
)

// MatchStage persists documents that satisfy a predicate.
type MatchStage struct {
	Predicate     sitecrawl.Predicate
	Sink          sitecrawl.Sink
	TitleSelector string

	// Events receives persisted and sink failure events. May be nil.
	Events sitecrawl.EventFunc

	// Now returns the crawl time stamped on records. Defaults to time.Now.
	Now func() time.Time
}

// Process evaluates the predicate against doc and, on a match, appends a
// record to the sink. It reports whether the document matched. A sink
// failure is returned as ESINK; it never affects other documents.
func (m *MatchStage) Process(ctx context.Context, doc *sitecrawl.Document) (bool, error) {
	if m.Predicate != nil && !m.Predicate.Match(doc) {
		return false, nil
	}

	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	selector := m.TitleSelector
	if selector == "" {
		selector = sitecrawl.DefaultTitleSelector
	}

	record := &sitecrawl.Record{
		URL:         doc.URL,
		Title:       doc.Page.Text(selector),
		ContentHash: doc.Hash,
		CrawledAt:   now().UTC(),
	}

	if err := m.Sink.Append(ctx, record); err != nil {
		err = sitecrawl.WrapError(sitecrawl.ESINK, err, "append %s", doc.URL)
		m.emit(sitecrawl.Event{Type: sitecrawl.EventSinkFailed, URL: doc.URL, Title: record.Title, Err: err})
		return true, err
	}
	m.emit(sitecrawl.Event{Type: sitecrawl.EventPersisted, URL: doc.URL, Title: record.Title})
	return true, nil
}

func (m *MatchStage) emit(e sitecrawl.Event) {
	if m.Events != nil {
		m.Events(e)
	}
}
