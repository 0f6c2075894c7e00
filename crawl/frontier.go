package crawl

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/fwojciec/sitecrawl"
)

// Compile-time interface verification.
var _ sitecrawl.Frontier = (*Frontier)(nil)

// Frontier is an append-only log of accepted URLs broadcast to every
// subscriber from the beginning. It is safe for concurrent use by
// multiple goroutines.
type Frontier struct {
	normalizer sitecrawl.Normalizer
	baseHost   string

	// StrictHost compares hosts exactly after case folding, so www.host
	// and host are different sites. Set it before the first Submit.
	StrictHost bool

	mu      sync.Mutex
	seen    sitecrawl.SeenSet
	log     []string
	changed chan struct{} // closed and replaced on every append
	closed  bool
	done    chan struct{}
}

// NewFrontier creates a Frontier that only accepts URLs on baseHost.
// An empty baseHost accepts every host. A nil seen set defaults to a
// MemorySet.
func NewFrontier(normalizer sitecrawl.Normalizer, baseHost string, seen sitecrawl.SeenSet) *Frontier {
	if seen == nil {
		seen = NewMemorySet()
	}
	return &Frontier{
		normalizer: normalizer,
		baseHost:   strings.ToLower(baseHost),
		seen:       seen,
		changed:    make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Submit normalizes raw against base and appends it to the log if it is
// in scope and new. Invalid URLs are dropped silently.
func (f *Frontier) Submit(raw, base string) (string, bool) {
	u, err := f.normalizer.Normalize(raw, base)
	if err != nil {
		return "", false
	}
	if !f.inScope(u) {
		return u, false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || !f.seen.Add(u) {
		return u, false
	}
	f.log = append(f.log, u)
	close(f.changed)
	f.changed = make(chan struct{})
	return u, true
}

// Subscribe streams the whole log starting at the first accepted URL and
// then every URL accepted later.
func (f *Frontier) Subscribe(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		next := 0
		for {
			f.mu.Lock()
			// Entries below len(f.log) are never rewritten, so the slice
			// can be read after unlocking.
			pending := f.log[next:len(f.log):len(f.log)]
			changed := f.changed
			closed := f.closed
			f.mu.Unlock()

			if closed {
				return
			}

			for _, u := range pending {
				select {
				case out <- u:
				case <-ctx.Done():
					return
				case <-f.done:
					return
				}
			}
			next += len(pending)
			if len(pending) > 0 {
				continue
			}

			select {
			case <-changed:
			case <-ctx.Done():
				return
			case <-f.done:
				return
			}
		}
	}()
	return out
}

// Len returns the number of URLs accepted so far.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.log)
}

// Close stops every subscriber stream. Later submissions are ignored.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.done)
}

func (f *Frontier) inScope(normalized string) bool {
	if f.baseHost == "" {
		return true
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return false
	}
	if f.StrictHost {
		return strings.ToLower(u.Host) == f.baseHost
	}
	return hostKey(u.Host) == hostKey(f.baseHost)
}

// hostKey folds case and a leading "www." so that the scope check agrees
// with a normalizer that strips it.
func hostKey(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
