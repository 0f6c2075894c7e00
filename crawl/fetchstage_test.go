package crawl_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/crawl"
	"github.com/fwojciec/sitecrawl/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchStage(t *testing.T) {
	t.Parallel()

	t.Run("never exceeds the concurrency cap", func(t *testing.T) {
		t.Parallel()

		const limit = 3
		var current, peak atomic.Int32
		fetcher := &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				current.Add(-1)
				return "ok", nil
			},
		}
		stage := crawl.NewFetchStage(fetcher, limit, crawl.RetryPolicy{})

		var mu sync.Mutex
		var results []crawl.FetchResult
		for i := range 20 {
			err := stage.Start(context.Background(), fmt.Sprintf("https://example.com/%d", i), func(r crawl.FetchResult) {
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			})
			require.NoError(t, err)
			assert.LessOrEqual(t, stage.InFlight(), limit)
		}
		stage.Wait()

		assert.Len(t, results, 20)
		assert.LessOrEqual(t, peak.Load(), int32(limit))
		assert.Greater(t, peak.Load(), int32(1), "fetches should overlap")
		assert.Equal(t, 0, stage.InFlight())
	})

	t.Run("start blocks until a slot frees up", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		fetcher := &mock.Fetcher{
			FetchFn: func(context.Context, string) (string, error) {
				<-release
				return "ok", nil
			},
		}
		stage := crawl.NewFetchStage(fetcher, 1, crawl.RetryPolicy{})

		require.NoError(t, stage.Start(context.Background(), "https://example.com/1", nil))

		admitted := make(chan struct{})
		go func() {
			_ = stage.Start(context.Background(), "https://example.com/2", nil)
			close(admitted)
		}()

		select {
		case <-admitted:
			t.Fatal("second fetch admitted above the cap")
		case <-time.After(50 * time.Millisecond):
		}
		assert.Equal(t, 1, stage.InFlight())

		close(release)
		select {
		case <-admitted:
		case <-time.After(2 * time.Second):
			t.Fatal("second fetch never admitted")
		}
		stage.Wait()
	})

	t.Run("slot is held during retry backoff", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		fetcher := &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) {
				if url == "https://example.com/flaky" && calls.Add(1) < 3 {
					return "", &sitecrawl.FetchError{URL: url, Status: 503}
				}
				return "ok", nil
			},
		}
		stage := crawl.NewFetchStage(fetcher, 1, crawl.RetryPolicy{MaxRetries: 5, BaseDelay: 30 * time.Millisecond})

		require.NoError(t, stage.Start(context.Background(), "https://example.com/flaky", nil))
		require.NoError(t, stage.Start(context.Background(), "https://example.com/next", nil))

		assert.Equal(t, int32(3), calls.Load(), "second fetch admitted before the first finished retrying")
		stage.Wait()
	})

	t.Run("reports retries and terminal failure as events", func(t *testing.T) {
		t.Parallel()

		fetcher := &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) {
				return "", &sitecrawl.FetchError{URL: url, Status: 500}
			},
		}
		stage := crawl.NewFetchStage(fetcher, 2, crawl.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond})

		var mu sync.Mutex
		var events []sitecrawl.Event
		stage.Events = func(e sitecrawl.Event) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		}

		var result crawl.FetchResult
		require.NoError(t, stage.Start(context.Background(), "https://example.com/down", func(r crawl.FetchResult) {
			result = r
		}))
		stage.Wait()

		require.Error(t, result.Err)
		assert.Equal(t, sitecrawl.EEXHAUSTED, sitecrawl.ErrorCode(result.Err))
		assert.Empty(t, result.Body)

		require.Len(t, events, 3)
		assert.Equal(t, sitecrawl.EventRetry, events[0].Type)
		assert.Equal(t, 1, events[0].Attempt)
		assert.Equal(t, time.Millisecond, events[0].Delay)
		assert.Equal(t, 500, events[0].Status)
		assert.Equal(t, sitecrawl.EventRetry, events[1].Type)
		assert.Equal(t, 2, events[1].Attempt)
		assert.Equal(t, 2*time.Millisecond, events[1].Delay)
		assert.Equal(t, sitecrawl.EventFetchFailed, events[2].Type)
		assert.Equal(t, 3, events[2].Attempt)
		assert.Equal(t, "https://example.com/down", events[2].URL)
	})

	t.Run("waits on the limiter before every attempt", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		fetcher := &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) {
				if calls.Add(1) == 1 {
					return "", &sitecrawl.FetchError{URL: url, Status: 502}
				}
				return "ok", nil
			},
		}
		var mu sync.Mutex
		var hosts []string
		stage := crawl.NewFetchStage(fetcher, 1, crawl.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond})
		stage.Limiter = &mock.DomainLimiter{
			WaitFn: func(_ context.Context, domain string) error {
				mu.Lock()
				hosts = append(hosts, domain)
				mu.Unlock()
				return nil
			},
		}

		require.NoError(t, stage.Start(context.Background(), "https://example.com:8443/a", nil))
		stage.Wait()

		assert.Equal(t, []string{"example.com:8443", "example.com:8443"}, hosts)
	})

	t.Run("admitted fetch survives cancellation", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		fetcher := &mock.Fetcher{
			FetchFn: func(ctx context.Context, _ string) (string, error) {
				close(started)
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(50 * time.Millisecond):
					return "ok", nil
				}
			},
		}
		stage := crawl.NewFetchStage(fetcher, 1, crawl.RetryPolicy{})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		results := make(chan crawl.FetchResult, 1)
		require.NoError(t, stage.Start(ctx, "https://example.com", func(r crawl.FetchResult) {
			results <- r
		}))
		<-started
		cancel()
		stage.Wait()

		result := <-results
		require.NoError(t, result.Err)
		assert.Equal(t, "ok", result.Body)
	})

	t.Run("start fails once the context is done", func(t *testing.T) {
		t.Parallel()

		stage := crawl.NewFetchStage(&mock.Fetcher{}, 1, crawl.RetryPolicy{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := stage.Start(ctx, "https://example.com", func(crawl.FetchResult) {
			t.Error("done called for a fetch that was never admitted")
		})

		assert.ErrorIs(t, err, context.Canceled)
		stage.Wait()
	})
}
