package crawl

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/sitecrawl"
	"golang.org/x/sync/semaphore"
)

// FetchResult is the outcome of fetching one URL. Err is set on terminal
// failure, in which case Body is empty.
type FetchResult struct {
	URL  string
	Body string
	Err  error
}

// FetchStage fetches URLs with at most a fixed number in flight.
// Callers beyond the cap block in Start until a slot frees up.
type FetchStage struct {
	Fetcher sitecrawl.Fetcher
	Policy  RetryPolicy

	// Limiter, when set, is waited on before every attempt.
	Limiter sitecrawl.DomainLimiter

	// Events receives retry and terminal failure events. May be nil.
	Events sitecrawl.EventFunc

	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// NewFetchStage creates a FetchStage allowing maxConcurrent fetches at once.
func NewFetchStage(fetcher sitecrawl.Fetcher, maxConcurrent int, policy RetryPolicy) *FetchStage {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &FetchStage{
		Fetcher: fetcher,
		Policy:  policy,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Start waits for a free slot and then fetches url in a new goroutine,
// retrying per the policy. The slot is held for every attempt and backoff
// of the URL and released before done is called with the result.
// Start returns an error only if ctx ends before a slot is acquired.
// Once admitted, the fetch and its retries run to completion even if ctx
// is canceled later.
func (s *FetchStage) Start(ctx context.Context, url string, done func(FetchResult)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	s.inFlight.Add(1)
	s.wg.Add(1)

	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()

		body, err := s.fetch(fetchCtx, url)

		s.inFlight.Add(-1)
		s.sem.Release(1)

		if done != nil {
			done(FetchResult{URL: url, Body: body, Err: err})
		}
	}()
	return nil
}

// Wait blocks until every started fetch has delivered its result.
func (s *FetchStage) Wait() {
	s.wg.Wait()
}

// InFlight returns the number of fetches currently holding a slot.
func (s *FetchStage) InFlight() int {
	return int(s.inFlight.Load())
}

func (s *FetchStage) fetch(ctx context.Context, rawURL string) (string, error) {
	fetch := s.Fetcher.Fetch
	if s.Limiter != nil {
		host := ""
		if u, err := url.Parse(rawURL); err == nil {
			host = u.Host
		}
		fetch = func(ctx context.Context, u string) (string, error) {
			if err := s.Limiter.Wait(ctx, host); err != nil {
				return "", err
			}
			return s.Fetcher.Fetch(ctx, u)
		}
	}

	attempts := 1
	onRetry := func(attempt int, delay time.Duration, err error) {
		attempts++
		s.emit(sitecrawl.Event{
			Type:    sitecrawl.EventRetry,
			URL:     rawURL,
			Attempt: attempt,
			Delay:   delay,
			Status:  sitecrawl.StatusCode(err),
			Err:     err,
		})
	}

	body, err := FetchWithRetry(ctx, rawURL, fetch, s.Policy, onRetry)
	if err != nil {
		s.emit(sitecrawl.Event{
			Type:    sitecrawl.EventFetchFailed,
			URL:     rawURL,
			Attempt: attempts,
			Status:  sitecrawl.StatusCode(err),
			Err:     err,
		})
		return "", err
	}
	return body, nil
}

func (s *FetchStage) emit(e sitecrawl.Event) {
	if s.Events != nil {
		s.Events(e)
	}
}
