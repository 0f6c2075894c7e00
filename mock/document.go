package mock

import "github.com/fwojciec/sitecrawl"

var _ sitecrawl.Parser = (*Parser)(nil)

// Parser is a mock implementation of sitecrawl.Parser.
type Parser struct {
	ParseFn func(body string) (sitecrawl.Queryable, error)
}

func (p *Parser) Parse(body string) (sitecrawl.Queryable, error) {
	return p.ParseFn(body)
}

var _ sitecrawl.Queryable = (*Queryable)(nil)

// Queryable is a mock implementation of sitecrawl.Queryable.
type Queryable struct {
	TextFn  func(selector string) string
	AttrFn  func(selector, name string) (string, bool)
	AttrsFn func(selector, name string) []string
}

func (q *Queryable) Text(selector string) string {
	return q.TextFn(selector)
}

func (q *Queryable) Attr(selector, name string) (string, bool) {
	return q.AttrFn(selector, name)
}

func (q *Queryable) Attrs(selector, name string) []string {
	return q.AttrsFn(selector, name)
}
