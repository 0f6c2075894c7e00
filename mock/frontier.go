package mock

import (
	"context"

	"github.com/fwojciec/sitecrawl"
)

var _ sitecrawl.Normalizer = (*Normalizer)(nil)

// Normalizer is a mock implementation of sitecrawl.Normalizer.
type Normalizer struct {
	NormalizeFn func(raw, base string) (string, error)
}

func (n *Normalizer) Normalize(raw, base string) (string, error) {
	return n.NormalizeFn(raw, base)
}

var _ sitecrawl.Frontier = (*Frontier)(nil)

// Frontier is a mock implementation of sitecrawl.Frontier.
type Frontier struct {
	SubmitFn    func(raw, base string) (string, bool)
	SubscribeFn func(ctx context.Context) <-chan string
	LenFn       func() int
	CloseFn     func()
}

func (f *Frontier) Submit(raw, base string) (string, bool) {
	return f.SubmitFn(raw, base)
}

func (f *Frontier) Subscribe(ctx context.Context) <-chan string {
	return f.SubscribeFn(ctx)
}

func (f *Frontier) Len() int {
	return f.LenFn()
}

func (f *Frontier) Close() {
	f.CloseFn()
}

var _ sitecrawl.SeenSet = (*SeenSet)(nil)

// SeenSet is a mock implementation of sitecrawl.SeenSet.
type SeenSet struct {
	AddFn func(key string) bool
	LenFn func() int
}

func (s *SeenSet) Add(key string) bool {
	return s.AddFn(key)
}

func (s *SeenSet) Len() int {
	return s.LenFn()
}

var _ sitecrawl.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of sitecrawl.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}
