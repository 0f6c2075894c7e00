// Package sitecrawl provides a bounded-concurrency, single-host web crawler.
// It discovers pages by following hyperlinks from a seed URL, fetches each
// page exactly once, feeds discovered links back into a deduplicating
// frontier, and persists a record for every page that satisfies a
// predicate chain.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., goquery/, sqlite/, whatwg/).
package sitecrawl
