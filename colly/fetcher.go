// Package colly provides a sitecrawl.Fetcher backed by a gocolly collector.
package colly

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/gocolly/colly/v2"
)

// DefaultTimeout is the per-request timeout used when none is configured.
const DefaultTimeout = 15 * time.Second

// Ensure Fetcher implements sitecrawl.Fetcher at compile time.
var _ sitecrawl.Fetcher = (*Fetcher)(nil)

// Config controls collector behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int
}

// Fetcher fetches pages through a gocolly collector. Each Fetch runs on a
// clone of a base collector, so fetches share connections but not
// callbacks.
type Fetcher struct {
	transport *http.Transport
	base      *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	transport := newHTTPTransport()

	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.WithTransport(transport)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	if cfg.MaxBodySize > 0 {
		c.MaxBodySize = cfg.MaxBodySize
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c.SetRequestTimeout(timeout)

	return &Fetcher{transport: transport, base: c}
}

// Fetch visits url and returns the response body. Error responses are
// reported as *sitecrawl.FetchError with the HTTP status; transport
// failures carry a zero status.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		mu     sync.Mutex
		body   string
		status int
		cause  error
	)
	collector := f.base.Clone()
	// Requests carry ctx, so a cancel aborts the in-flight visit.
	collector.Context = ctx
	collector.OnResponse(func(r *colly.Response) {
		mu.Lock()
		defer mu.Unlock()
		body = string(r.Body)
		status = r.StatusCode
	})
	collector.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		if r != nil {
			status = r.StatusCode
		}
		cause = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	var visitErr error
	select {
	case <-ctx.Done():
		return "", &sitecrawl.FetchError{URL: url, Err: ctx.Err()}
	case visitErr = <-done:
	}

	mu.Lock()
	defer mu.Unlock()
	if cause == nil {
		cause = visitErr
	}
	if cause != nil {
		if status < 300 {
			status = 0
		}
		return "", &sitecrawl.FetchError{URL: url, Status: status, Err: cause}
	}
	return body, nil
}

// Close releases idle connections.
func (f *Fetcher) Close() error {
	f.transport.CloseIdleConnections()
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
