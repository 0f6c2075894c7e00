package sitecrawl_test

import (
	"testing"

	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// productPage builds a document that answers the given text and attribute
// queries. Unknown selectors yield empty results.
func productPage(texts map[string]string, attrs map[string]string) *sitecrawl.Document {
	return &sitecrawl.Document{
		URL: "https://example.com/p/1",
		Page: &mock.Queryable{
			TextFn: func(selector string) string {
				return texts[selector]
			},
			AttrFn: func(selector, name string) (string, bool) {
				v, ok := attrs[selector+"@"+name]
				return v, ok
			},
			AttrsFn: func(selector, name string) []string {
				return nil
			},
		},
	}
}

func TestChain_AllPredicatesMustHold(t *testing.T) {
	t.Parallel()

	chain := sitecrawl.Chain{
		sitecrawl.AttrEquals(`meta[property="og:type"]`, "content", "product"),
		sitecrawl.TextContains(".stock", "In stock"),
		sitecrawl.NumberAbove(".price", 10),
	}

	matching := func() (map[string]string, map[string]string) {
		return map[string]string{".stock": "In stock now", ".price": "19.99"},
			map[string]string{`meta[property="og:type"]@content`: "product"}
	}

	t.Run("all hold", func(t *testing.T) {
		t.Parallel()
		texts, attrs := matching()
		assert.True(t, chain.Match(productPage(texts, attrs)))
	})

	t.Run("wrong type", func(t *testing.T) {
		t.Parallel()
		texts, attrs := matching()
		attrs[`meta[property="og:type"]@content`] = "article"
		assert.False(t, chain.Match(productPage(texts, attrs)))
	})

	t.Run("missing text", func(t *testing.T) {
		t.Parallel()
		texts, attrs := matching()
		texts[".stock"] = "Sold out"
		assert.False(t, chain.Match(productPage(texts, attrs)))
	})

	t.Run("below threshold", func(t *testing.T) {
		t.Parallel()
		texts, attrs := matching()
		texts[".price"] = "9.50"
		assert.False(t, chain.Match(productPage(texts, attrs)))
	})
}

func TestChain_Empty(t *testing.T) {
	t.Parallel()

	assert.True(t, sitecrawl.Chain{}.Match(productPage(nil, nil)))
	assert.True(t, sitecrawl.Chain(nil).Match(productPage(nil, nil)))
}

func TestChain_ShortCircuitsInOrder(t *testing.T) {
	t.Parallel()

	var calls []string
	record := func(name string, result bool) sitecrawl.Predicate {
		return sitecrawl.PredicateFunc(func(*sitecrawl.Document) bool {
			calls = append(calls, name)
			return result
		})
	}

	chain := sitecrawl.Chain{record("first", true), record("second", false), record("third", true)}

	assert.False(t, chain.Match(productPage(nil, nil)))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestAttrEquals_MissingAttribute(t *testing.T) {
	t.Parallel()

	p := sitecrawl.AttrEquals("meta", "content", "")

	assert.False(t, p.Match(productPage(nil, nil)))
	assert.True(t, p.Match(productPage(nil, map[string]string{"meta@content": ""})))
}

func TestNumberAbove(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"above", "42", true},
		{"surrounding whitespace", "  42.5\n", true},
		{"equal is not above", "10", false},
		{"below", "3", false},
		{"negative", "-20", false},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"not a number", "ten", false},
		{"currency prefix", "$42", false},
	}

	p := sitecrawl.NumberAbove(".price", 10)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := productPage(map[string]string{".price": tt.text}, nil)
			assert.Equal(t, tt.want, p.Match(doc))
		})
	}
}

func TestRules_Chain(t *testing.T) {
	t.Parallel()

	rules := sitecrawl.Rules{
		{Type: sitecrawl.RuleAttrEquals, Selector: "meta[name=kind]", Attr: "content", Value: "product"},
		{Type: sitecrawl.RuleTextContains, Selector: "h1", Value: "Widget"},
		{Type: sitecrawl.RuleNumberAbove, Selector: ".price", Threshold: 5},
	}

	chain, err := rules.Chain()
	require.NoError(t, err)
	require.Len(t, chain, 3)

	doc := productPage(
		map[string]string{"h1": "Blue Widget", ".price": "7"},
		map[string]string{"meta[name=kind]@content": "product"},
	)
	assert.True(t, chain.Match(doc))

	doc = productPage(
		map[string]string{"h1": "Blue Gadget", ".price": "7"},
		map[string]string{"meta[name=kind]@content": "product"},
	)
	assert.False(t, chain.Match(doc))
}

func TestRules_ChainEmpty(t *testing.T) {
	t.Parallel()

	chain, err := sitecrawl.Rules(nil).Chain()

	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestMatchRule_PredicateInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rule sitecrawl.MatchRule
	}{
		{"unknown type", sitecrawl.MatchRule{Type: "regex", Selector: "h1"}},
		{"missing selector", sitecrawl.MatchRule{Type: sitecrawl.RuleTextContains, Value: "x"}},
		{"attr_equals without attr", sitecrawl.MatchRule{Type: sitecrawl.RuleAttrEquals, Selector: "meta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.rule.Predicate()
			require.Error(t, err)
			assert.Equal(t, sitecrawl.EINVALID, sitecrawl.ErrorCode(err))
		})
	}
}
