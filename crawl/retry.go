package crawl

import (
	"context"
	"slices"
	"time"

	"github.com/fwojciec/sitecrawl"
)

// FetchFunc is the signature for a fetch function.
type FetchFunc func(ctx context.Context, url string) (string, error)

// RetryFunc is called before each retry sleep. attempt is 1-indexed.
type RetryFunc func(attempt int, delay time.Duration, err error)

// RetryPolicy decides whether and when a failed fetch is retried.
type RetryPolicy struct {
	MaxRetries          int
	BaseDelay           time.Duration
	ExcludedStatusCodes []int
}

// DefaultRetryPolicy returns a policy of 5 retries with a 3s base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: sitecrawl.DefaultMaxRetries,
		BaseDelay:  sitecrawl.DefaultRetryBaseDelay,
	}
}

// Delay returns the backoff before retry n (1-indexed). The schedule is
// linear: base, 2*base, 3*base and so on.
func (p RetryPolicy) Delay(n int) time.Duration {
	return time.Duration(n) * p.BaseDelay
}

// Permanent reports whether err can never succeed on retry: an excluded
// status, or an EINVALID error such as a malformed request URL.
func (p RetryPolicy) Permanent(err error) bool {
	return p.Excluded(err) || sitecrawl.ErrorCode(err) == sitecrawl.EINVALID
}

// Excluded reports whether err carries a status that must not be retried.
func (p RetryPolicy) Excluded(err error) bool {
	status := sitecrawl.StatusCode(err)
	return status != 0 && slices.Contains(p.ExcludedStatusCodes, status)
}

// FetchWithRetry fetches url, retrying failures with linear backoff.
// Attempts for one URL are strictly sequential. Permanent failures are
// returned as is after a single attempt. Running out of retries returns
// an EEXHAUSTED error wrapping the last failure. onRetry may be nil.
func FetchWithRetry(ctx context.Context, url string, fetch FetchFunc, policy RetryPolicy, onRetry RetryFunc) (string, error) {
	for retry := 0; ; retry++ {
		body, err := fetch(ctx, url)
		if err == nil {
			return body, nil
		}

		if policy.Permanent(err) {
			return "", err
		}
		if retry >= policy.MaxRetries {
			return "", sitecrawl.WrapError(sitecrawl.EEXHAUSTED, err, "%s: gave up after %d attempts", url, retry+1)
		}

		// Check context before sleeping
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		delay := policy.Delay(retry + 1)
		if onRetry != nil {
			onRetry(retry+1, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}
