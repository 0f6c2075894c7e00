package crawl

import "github.com/fwojciec/sitecrawl"

var _ sitecrawl.SeenSet = (*MemorySet)(nil)

// MemorySet is an exact seen set backed by a map. Memory grows with the
// number of distinct URLs. It is not safe for concurrent use.
type MemorySet struct {
	keys map[string]struct{}
}

// NewMemorySet creates an empty MemorySet.
func NewMemorySet() *MemorySet {
	return &MemorySet{keys: make(map[string]struct{})}
}

// Add inserts key and reports whether it was absent.
func (s *MemorySet) Add(key string) bool {
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// Len returns the number of keys.
func (s *MemorySet) Len() int {
	return len(s.keys)
}
