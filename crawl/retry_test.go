package crawl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusErr(url string, status int) error {
	return &sitecrawl.FetchError{URL: url, Status: status}
}

func TestRetryPolicy_Delay(t *testing.T) {
	t.Parallel()

	p := crawl.RetryPolicy{BaseDelay: 100 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 300*time.Millisecond, p.Delay(3))
}

func TestDefaultRetryPolicy(t *testing.T) {
	t.Parallel()

	p := crawl.DefaultRetryPolicy()

	assert.Equal(t, 5, p.MaxRetries)
	assert.Equal(t, 3*time.Second, p.BaseDelay)
	assert.Empty(t, p.ExcludedStatusCodes)
}

func TestFetchWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("returns immediately on success", func(t *testing.T) {
		t.Parallel()

		calls := 0
		fetch := func(context.Context, string) (string, error) {
			calls++
			return "<html></html>", nil
		}

		body, err := crawl.FetchWithRetry(context.Background(), "https://example.com", fetch, crawl.RetryPolicy{MaxRetries: 3}, nil)

		require.NoError(t, err)
		assert.Equal(t, "<html></html>", body)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries with linear backoff until exhausted", func(t *testing.T) {
		t.Parallel()

		calls := 0
		fetch := func(_ context.Context, url string) (string, error) {
			calls++
			return "", statusErr(url, 500)
		}
		var attempts []int
		var delays []time.Duration
		onRetry := func(attempt int, delay time.Duration, err error) {
			attempts = append(attempts, attempt)
			delays = append(delays, delay)
			assert.Equal(t, 500, sitecrawl.StatusCode(err))
		}
		policy := crawl.RetryPolicy{MaxRetries: 3, BaseDelay: 10 * time.Millisecond}

		start := time.Now()
		_, err := crawl.FetchWithRetry(context.Background(), "https://example.com", fetch, policy, onRetry)

		require.Error(t, err)
		assert.Equal(t, sitecrawl.EEXHAUSTED, sitecrawl.ErrorCode(err))
		assert.Equal(t, 500, sitecrawl.StatusCode(err), "last failure is wrapped")
		assert.Equal(t, 4, calls, "one attempt plus three retries")
		assert.Equal(t, []int{1, 2, 3}, attempts)
		assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}, delays)
		assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		t.Parallel()

		calls := 0
		fetch := func(_ context.Context, url string) (string, error) {
			calls++
			if calls <= 3 {
				return "", statusErr(url, 500)
			}
			return "ok", nil
		}
		policy := crawl.RetryPolicy{MaxRetries: 5, BaseDelay: time.Millisecond}

		body, err := crawl.FetchWithRetry(context.Background(), "https://example.com", fetch, policy, nil)

		require.NoError(t, err)
		assert.Equal(t, "ok", body)
		assert.Equal(t, 4, calls)
	})

	t.Run("excluded status is terminal without retries", func(t *testing.T) {
		t.Parallel()

		calls := 0
		fetch := func(_ context.Context, url string) (string, error) {
			calls++
			return "", statusErr(url, 404)
		}
		retried := false
		policy := crawl.RetryPolicy{MaxRetries: 5, BaseDelay: time.Millisecond, ExcludedStatusCodes: []int{404, 410}}

		_, err := crawl.FetchWithRetry(context.Background(), "https://example.com", fetch, policy, func(int, time.Duration, error) {
			retried = true
		})

		require.Error(t, err)
		assert.Equal(t, sitecrawl.EFETCH, sitecrawl.ErrorCode(err))
		assert.Equal(t, 404, sitecrawl.StatusCode(err))
		assert.Equal(t, 1, calls)
		assert.False(t, retried)
	})

	t.Run("invalid request is terminal without retries", func(t *testing.T) {
		t.Parallel()

		calls := 0
		fetch := func(_ context.Context, url string) (string, error) {
			calls++
			return "", &sitecrawl.FetchError{URL: url, Err: sitecrawl.Errorf(sitecrawl.EINVALID, "malformed url")}
		}
		retried := false
		policy := crawl.RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour}

		_, err := crawl.FetchWithRetry(context.Background(), "https://example.com", fetch, policy, func(int, time.Duration, error) {
			retried = true
		})

		require.Error(t, err)
		assert.Equal(t, sitecrawl.EINVALID, sitecrawl.ErrorCode(err))
		assert.Equal(t, 1, calls)
		assert.False(t, retried)
	})

	t.Run("zero max retries makes a single attempt", func(t *testing.T) {
		t.Parallel()

		calls := 0
		fetch := func(context.Context, string) (string, error) {
			calls++
			return "", errors.New("connection refused")
		}

		_, err := crawl.FetchWithRetry(context.Background(), "https://example.com", fetch, crawl.RetryPolicy{}, nil)

		require.Error(t, err)
		assert.Equal(t, sitecrawl.EEXHAUSTED, sitecrawl.ErrorCode(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("stops waiting when context is canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		fetch := func(context.Context, string) (string, error) {
			return "", errors.New("timeout")
		}
		policy := crawl.RetryPolicy{MaxRetries: 3, BaseDelay: time.Hour}

		start := time.Now()
		_, err := crawl.FetchWithRetry(ctx, "https://example.com", fetch, policy, func(int, time.Duration, error) {
			cancel()
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), time.Second)
	})
}
