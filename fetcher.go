package sitecrawl

import "context"

// Fetcher retrieves page bodies from URLs.
type Fetcher interface {
	// Fetch retrieves the body of the URL. HTTP failures are reported as
	// *FetchError so callers can inspect the status code.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (body string, err error)

	// Close releases fetcher resources.
	Close() error
}
