// Package bloom provides a bounded-memory seen set backed by a Bloom filter.
package bloom

import (
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fwojciec/sitecrawl"
)

// Default sizing for NewSet.
const (
	DefaultExpectedURLs      = 100_000
	DefaultFalsePositiveRate = 0.001
)

var _ sitecrawl.SeenSet = (*Set)(nil)

// Set is an approximate seen set. Memory is fixed at construction. A false
// positive makes Add report a new URL as already seen, so that URL is
// never crawled; there are no false negatives. Not safe for concurrent use.
type Set struct {
	f     *bloom.BloomFilter
	added int
}

// NewSet creates a Set sized for n expected URLs at the given false
// positive rate. Zero values fall back to the defaults.
func NewSet(n uint, fpRate float64) *Set {
	if n == 0 {
		n = DefaultExpectedURLs
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = DefaultFalsePositiveRate
	}
	return &Set{f: bloom.NewWithEstimates(n, fpRate)}
}

// Add inserts key and reports whether it was (probably) absent.
func (s *Set) Add(key string) bool {
	if s.f.TestAndAddString(key) {
		return false
	}
	s.added++
	return true
}

// Len returns the number of keys Add reported as new.
func (s *Set) Len() int {
	return s.added
}

// EstimatedCount returns the filter's own estimate of distinct keys.
func (s *Set) EstimatedCount() uint {
	return uint(s.f.ApproximatedSize())
}
