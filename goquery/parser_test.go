package goquery_test

import (
	"testing"

	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productHTML = `<!DOCTYPE html>
<html>
<head>
	<title> Blue Widget </title>
	<meta property="og:type" content="product">
</head>
<body>
	<h1>Blue Widget</h1>
	<p class="price">  19.99 </p>
	<nav>
		<a href="/a">A</a>
		<a>No target</a>
		<a href="">Empty</a>
		<a href="/b?ref=x">B</a>
	</nav>
</body>
</html>`

func TestParser_Parse(t *testing.T) {
	t.Parallel()

	t.Run("implements sitecrawl.Parser interface", func(t *testing.T) {
		t.Parallel()
		var _ sitecrawl.Parser = goquery.NewParser()
	})

	t.Run("text is trimmed", func(t *testing.T) {
		t.Parallel()

		page, err := goquery.NewParser().Parse(productHTML)
		require.NoError(t, err)

		assert.Equal(t, "Blue Widget", page.Text("title"))
		assert.Equal(t, "19.99", page.Text(".price"))
	})

	t.Run("text of missing selector is empty", func(t *testing.T) {
		t.Parallel()

		page, err := goquery.NewParser().Parse(productHTML)
		require.NoError(t, err)

		assert.Empty(t, page.Text(".missing"))
	})

	t.Run("attr reads the first match", func(t *testing.T) {
		t.Parallel()

		page, err := goquery.NewParser().Parse(productHTML)
		require.NoError(t, err)

		v, ok := page.Attr(`meta[property="og:type"]`, "content")
		assert.True(t, ok)
		assert.Equal(t, "product", v)

		v, ok = page.Attr("nav a", "href")
		assert.True(t, ok)
		assert.Equal(t, "/a", v)
	})

	t.Run("attr reports absence", func(t *testing.T) {
		t.Parallel()

		page, err := goquery.NewParser().Parse(productHTML)
		require.NoError(t, err)

		_, ok := page.Attr("h1", "data-id")
		assert.False(t, ok)
		_, ok = page.Attr(".missing", "href")
		assert.False(t, ok)
	})

	t.Run("attrs returns every match in document order", func(t *testing.T) {
		t.Parallel()

		page, err := goquery.NewParser().Parse(productHTML)
		require.NoError(t, err)

		assert.Equal(t, []string{"/a", "", "", "/b?ref=x"}, page.Attrs("a", "href"))
	})

	t.Run("invalid selector matches nothing", func(t *testing.T) {
		t.Parallel()

		p := goquery.NewParser()
		page, err := p.Parse(productHTML)
		require.NoError(t, err)

		assert.Empty(t, page.Text("a[href"))
		assert.Empty(t, page.Attrs("a[href", "href"))

		err = p.Compile("a[href")
		require.Error(t, err)
		assert.Equal(t, sitecrawl.EINVALID, sitecrawl.ErrorCode(err))
		assert.NoError(t, p.Compile("nav a[href]"))
	})

	t.Run("tolerates malformed markup", func(t *testing.T) {
		t.Parallel()

		page, err := goquery.NewParser().Parse(`<div><p>unclosed <b>bold`)
		require.NoError(t, err)

		assert.Equal(t, "unclosed bold", page.Text("p"))
	})
}
