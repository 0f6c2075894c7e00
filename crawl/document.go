package crawl

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/sitecrawl"
)

// BuildDocument parses a successful fetch result into a Document.
// Parse failures are returned as EPARSE and are never retried.
func BuildDocument(parser sitecrawl.Parser, result FetchResult) (*sitecrawl.Document, error) {
	if result.Err != nil {
		return nil, result.Err
	}
	page, err := parser.Parse(result.Body)
	if err != nil {
		return nil, sitecrawl.WrapError(sitecrawl.EPARSE, err, "parse %s", result.URL)
	}
	return &sitecrawl.Document{
		URL:  result.URL,
		Page: page,
		Hash: ContentHash(result.Body),
	}, nil
}

// ContentHash returns a short stable fingerprint of body.
func ContentHash(body string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(body))
}

// LinkExtractor pulls hyperlink targets out of a document.
type LinkExtractor struct {
	Selector string
	Attr     string
}

// NewLinkExtractor creates a LinkExtractor reading href from every anchor.
func NewLinkExtractor() LinkExtractor {
	return LinkExtractor{
		Selector: sitecrawl.DefaultLinkSelector,
		Attr:     sitecrawl.DefaultLinkAttr,
	}
}

// Extract returns the raw link targets in document order. Missing and
// blank targets are skipped. Targets are not resolved or deduplicated.
func (e LinkExtractor) Extract(doc *sitecrawl.Document) []string {
	values := doc.Page.Attrs(e.Selector, e.Attr)
	links := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		links = append(links, v)
	}
	return links
}
