package sitecrawl

// Queryable is a parsed page that answers CSS selector queries.
type Queryable interface {
	// Text returns the combined, whitespace-trimmed text of all elements
	// matching selector.
	Text(selector string) string

	// Attr returns the named attribute of the first element matching selector.
	Attr(selector, name string) (string, bool)

	// Attrs returns the named attribute of every element matching selector,
	// in document order. Elements without the attribute yield "".
	Attrs(selector, name string) []string
}

// Parser turns a fetched body into a queryable page.
type Parser interface {
	Parse(body string) (Queryable, error)
}

// Document pairs a visited URL with its parsed content.
type Document struct {
	URL  string
	Page Queryable

	// Hash identifies the body the page was parsed from.
	Hash string
}
