package sitecrawl

import "context"

// Normalizer canonicalizes raw URLs into comparable keys.
type Normalizer interface {
	// Normalize resolves raw against base (which may be empty) and returns
	// the canonical absolute URL. Returns EINVALID if the result is not a
	// parsable http or https URL.
	Normalize(raw, base string) (string, error)
}

// Frontier is the deduplicating stream of URLs to visit.
type Frontier interface {
	// Submit normalizes raw against base and accepts it if it is in scope
	// and has never been accepted before. It returns the normalized URL
	// and whether it was accepted. Submit never blocks on subscribers.
	Submit(raw, base string) (string, bool)

	// Subscribe returns a stream of every accepted URL, starting from the
	// first one ever accepted. The channel closes when ctx is done or the
	// frontier is closed.
	Subscribe(ctx context.Context) <-chan string

	// Len returns the number of URLs accepted so far.
	Len() int

	// Close tears down all subscriber streams.
	Close()
}

// SeenSet records which normalized URLs have been accepted.
// Implementations need not be safe for concurrent use; the frontier
// serializes access.
type SeenSet interface {
	// Add inserts key and reports whether it was absent.
	Add(key string) bool

	// Len returns the approximate number of keys added.
	Len() int
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
