// Package goquery implements sitecrawl.Parser with CSS selector queries
// answered by goquery.
package goquery

import (
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/fwojciec/sitecrawl"
)

// Ensure Parser implements sitecrawl.Parser at compile time.
var _ sitecrawl.Parser = (*Parser)(nil)

// Parser parses HTML bodies into queryable documents. Compiled selectors
// are cached and shared by every document it produces. It is safe for
// concurrent use.
type Parser struct {
	mu        sync.Mutex
	selectors map[string]goquery.Matcher
}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{selectors: make(map[string]goquery.Matcher)}
}

// Parse parses body as HTML.
func (p *Parser) Parse(body string) (sitecrawl.Queryable, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return &Document{doc: doc, parser: p}, nil
}

// Compile reports whether selector is a valid CSS selector.
func (p *Parser) Compile(selector string) error {
	_, err := p.matcher(selector)
	return err
}

func (p *Parser) matcher(selector string) (goquery.Matcher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.selectors[selector]; ok {
		return m, nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, sitecrawl.WrapError(sitecrawl.EINVALID, err, "invalid selector %q", selector)
	}
	p.selectors[selector] = sel
	return sel, nil
}

// Ensure Document implements sitecrawl.Queryable at compile time.
var _ sitecrawl.Queryable = (*Document)(nil)

// Document is a parsed HTML page. Queries with an invalid selector
// match nothing.
type Document struct {
	doc    *goquery.Document
	parser *Parser
}

func (d *Document) find(selector string) *goquery.Selection {
	m, err := d.parser.matcher(selector)
	if err != nil {
		return d.doc.Selection.Slice(0, 0)
	}
	return d.doc.FindMatcher(m)
}

// Text returns the trimmed text of every element matching selector.
func (d *Document) Text(selector string) string {
	return strings.TrimSpace(d.find(selector).Text())
}

// Attr returns the named attribute of the first element matching selector.
func (d *Document) Attr(selector, name string) (string, bool) {
	return d.find(selector).First().Attr(name)
}

// Attrs returns the named attribute of every element matching selector.
func (d *Document) Attrs(selector, name string) []string {
	sel := d.find(selector)
	values := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		values = append(values, s.AttrOr(name, ""))
	})
	return values
}
