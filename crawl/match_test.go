package crawl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/crawl"
	"github.com/fwojciec/sitecrawl/goquery"
	"github.com/fwojciec/sitecrawl/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, url, body string) *sitecrawl.Document {
	t.Helper()
	doc, err := crawl.BuildDocument(goquery.NewParser(), crawl.FetchResult{URL: url, Body: body})
	require.NoError(t, err)
	return doc
}

func TestMatchStage_Process(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	const body = `<html><head><title>Widget</title><meta property="og:type" content="product"></head>
		<body><p class="stock">In stock</p><p class="price">25</p></body></html>`

	products := sitecrawl.Chain{
		sitecrawl.AttrEquals(`meta[property="og:type"]`, "content", "product"),
		sitecrawl.TextContains(".stock", "In stock"),
		sitecrawl.NumberAbove(".price", 20),
	}

	t.Run("appends a record when the chain matches", func(t *testing.T) {
		t.Parallel()

		var got *sitecrawl.Record
		var events []sitecrawl.Event
		stage := &crawl.MatchStage{
			Predicate: products,
			Sink: &mock.Sink{AppendFn: func(_ context.Context, r *sitecrawl.Record) error {
				got = r
				return nil
			}},
			Events: func(e sitecrawl.Event) { events = append(events, e) },
			Now:    func() time.Time { return now },
		}
		doc := parseDoc(t, "https://example.com/widget", body)

		matched, err := stage.Process(context.Background(), doc)

		require.NoError(t, err)
		assert.True(t, matched)
		require.NotNil(t, got)
		assert.Equal(t, "https://example.com/widget", got.URL)
		assert.Equal(t, "Widget", got.Title)
		assert.Equal(t, doc.Hash, got.ContentHash)
		assert.Equal(t, now, got.CrawledAt)
		require.Len(t, events, 1)
		assert.Equal(t, sitecrawl.EventPersisted, events[0].Type)
		assert.Equal(t, "Widget", events[0].Title)
	})

	t.Run("flipping any predicate suppresses the sink call", func(t *testing.T) {
		t.Parallel()

		variants := map[string]string{
			"wrong type":      `<meta property="og:type" content="article"><p class="stock">In stock</p><p class="price">25</p>`,
			"missing text":    `<meta property="og:type" content="product"><p class="stock">Sold out</p><p class="price">25</p>`,
			"below threshold": `<meta property="og:type" content="product"><p class="stock">In stock</p><p class="price">15</p>`,
		}
		for name, html := range variants {
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				stage := &crawl.MatchStage{
					Predicate: products,
					Sink: &mock.Sink{AppendFn: func(context.Context, *sitecrawl.Record) error {
						t.Error("sink called for a non-matching document")
						return nil
					}},
				}

				matched, err := stage.Process(context.Background(), parseDoc(t, "https://example.com/x", html))

				require.NoError(t, err)
				assert.False(t, matched)
			})
		}
	})

	t.Run("nil predicate matches everything", func(t *testing.T) {
		t.Parallel()

		calls := 0
		stage := &crawl.MatchStage{
			Sink: &mock.Sink{AppendFn: func(context.Context, *sitecrawl.Record) error {
				calls++
				return nil
			}},
		}

		matched, err := stage.Process(context.Background(), parseDoc(t, "https://example.com", "<p>hi</p>"))

		require.NoError(t, err)
		assert.True(t, matched)
		assert.Equal(t, 1, calls)
	})

	t.Run("sink failure is reported as ESINK", func(t *testing.T) {
		t.Parallel()

		var events []sitecrawl.Event
		stage := &crawl.MatchStage{
			Sink: &mock.Sink{AppendFn: func(context.Context, *sitecrawl.Record) error {
				return errors.New("disk full")
			}},
			Events: func(e sitecrawl.Event) { events = append(events, e) },
		}

		matched, err := stage.Process(context.Background(), parseDoc(t, "https://example.com", body))

		assert.True(t, matched)
		require.Error(t, err)
		assert.Equal(t, sitecrawl.ESINK, sitecrawl.ErrorCode(err))
		require.Len(t, events, 1)
		assert.Equal(t, sitecrawl.EventSinkFailed, events[0].Type)
	})

	t.Run("uses the configured title selector", func(t *testing.T) {
		t.Parallel()

		var title string
		stage := &crawl.MatchStage{
			TitleSelector: "h1",
			Sink: &mock.Sink{AppendFn: func(_ context.Context, r *sitecrawl.Record) error {
				title = r.Title
				return nil
			}},
		}

		_, err := stage.Process(context.Background(), parseDoc(t, "https://example.com", `<title>Site</title><h1> Heading </h1>`))

		require.NoError(t, err)
		assert.Equal(t, "Heading", title)
	})
}
