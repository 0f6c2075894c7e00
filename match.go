package sitecrawl

import (
	"strconv"
	"strings"
)

// Predicate decides whether a document should be persisted.
type Predicate interface {
	Match(doc *Document) bool
}

// PredicateFunc adapts a function to the Predicate interface.
type PredicateFunc func(doc *Document) bool

// Match calls f(doc).
func (f PredicateFunc) Match(doc *Document) bool {
	return f(doc)
}

// Chain is an ordered list of predicates combined with logical AND.
// Predicates are evaluated in order and evaluation stops at the first
// failure. An empty chain matches every document.
type Chain []Predicate

// Match returns true if every predicate in the chain matches.
func (c Chain) Match(doc *Document) bool {
	for _, p := range c {
		if !p.Match(doc) {
			return false
		}
	}
	return true
}

// AttrEquals matches documents whose first element matching selector has
// the attribute set to value, e.g. a page type declared in a meta tag.
func AttrEquals(selector, attr, value string) Predicate {
	return PredicateFunc(func(doc *Document) bool {
		v, ok := doc.Page.Attr(selector, attr)
		return ok && v == value
	})
}

// TextContains matches documents whose text under selector contains substr.
func TextContains(selector, substr string) Predicate {
	return PredicateFunc(func(doc *Document) bool {
		return strings.Contains(doc.Page.Text(selector), substr)
	})
}

// NumberAbove matches documents whose text under selector parses as a
// number strictly greater than threshold. Empty or non-numeric text never matches.
func NumberAbove(selector string, threshold float64) Predicate {
	return PredicateFunc(func(doc *Document) bool {
		text := strings.TrimSpace(doc.Page.Text(selector))
		if text == "" {
			return false
		}
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return false
		}
		return n > threshold
	})
}

// Match rule types.
const (
	RuleAttrEquals   = "attr_equals"
	RuleTextContains = "text_contains"
	RuleNumberAbove  = "number_above"
)

// MatchRule is the declarative form of a built-in predicate.
type MatchRule struct {
	Type      string  `yaml:"type" validate:"required,oneof=attr_equals text_contains number_above"`
	Selector  string  `yaml:"selector" validate:"required"`
	Attr      string  `yaml:"attr,omitempty" validate:"required_if=Type attr_equals"`
	Value     string  `yaml:"value,omitempty"`
	Threshold float64 `yaml:"threshold,omitempty"`
}

// Predicate compiles the rule.
func (r MatchRule) Predicate() (Predicate, error) {
	if r.Selector == "" {
		return nil, Errorf(EINVALID, "match rule %q: selector required", r.Type)
	}
	switch r.Type {
	case RuleAttrEquals:
		if r.Attr == "" {
			return nil, Errorf(EINVALID, "match rule %q: attr required", r.Type)
		}
		return AttrEquals(r.Selector, r.Attr, r.Value), nil
	case RuleTextContains:
		return TextContains(r.Selector, r.Value), nil
	case RuleNumberAbove:
		return NumberAbove(r.Selector, r.Threshold), nil
	default:
		return nil, Errorf(EINVALID, "unknown match rule type %q", r.Type)
	}
}

// Rules is an ordered list of match rules.
type Rules []MatchRule

// Chain compiles the rules into a predicate chain preserving declaration order.
func (rs Rules) Chain() (Chain, error) {
	chain := make(Chain, 0, len(rs))
	for _, r := range rs {
		p, err := r.Predicate()
		if err != nil {
			return nil, err
		}
		chain = append(chain, p)
	}
	return chain, nil
}
