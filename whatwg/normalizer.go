// Package whatwg implements sitecrawl.Normalizer on top of a WHATWG URL
// parser, so relative references resolve the way browsers resolve them.
package whatwg

import (
	"net/url"
	"strings"

	"github.com/fwojciec/sitecrawl"
	whatwgurl "github.com/nlnwa/whatwg-url/url"
)

var parser = whatwgurl.NewParser(whatwgurl.WithPercentEncodeSinglePercentSign())

// Ensure Normalizer implements sitecrawl.Normalizer at compile time.
var _ sitecrawl.Normalizer = (*Normalizer)(nil)

// Normalizer turns raw hyperlinks into canonical absolute URLs.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	exact         map[string]struct{}
	prefixes      []string
	stripWWW      bool
	lowercasePath bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithStripParams sets the query parameters removed during normalization.
// A name ending in "*" removes every parameter with that prefix.
// Defaults to sitecrawl.DefaultStripQueryParams.
func WithStripParams(names ...string) Option {
	return func(n *Normalizer) {
		n.exact = make(map[string]struct{}, len(names))
		n.prefixes = nil
		for _, name := range names {
			if prefix, ok := strings.CutSuffix(name, "*"); ok {
				n.prefixes = append(n.prefixes, prefix)
				continue
			}
			n.exact[name] = struct{}{}
		}
	}
}

// WithStripWWW removes a leading "www." from the host.
func WithStripWWW(strip bool) Option {
	return func(n *Normalizer) {
		n.stripWWW = strip
	}
}

// WithLowercasePath folds the path to lower case. Only use it for sites
// known to serve paths case-insensitively.
func WithLowercasePath(lower bool) Option {
	return func(n *Normalizer) {
		n.lowercasePath = lower
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{}
	WithStripParams(sitecrawl.DefaultStripQueryParams()...)(n)
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize resolves raw against base and returns its canonical form.
// base may be empty when raw is absolute.
func (n *Normalizer) Normalize(raw, base string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" && base == "" {
		return "", sitecrawl.Errorf(sitecrawl.EINVALID, "empty URL")
	}

	var (
		parsed *whatwgurl.Url
		err    error
	)
	if base == "" {
		parsed, err = parser.Parse(raw)
	} else {
		parsed, err = parser.ParseRef(base, raw)
	}
	if err != nil {
		return "", sitecrawl.WrapError(sitecrawl.EINVALID, err, "invalid URL %q", raw)
	}

	u, err := url.Parse(parsed.Href(true))
	if err != nil {
		return "", sitecrawl.WrapError(sitecrawl.EINVALID, err, "invalid URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", sitecrawl.Errorf(sitecrawl.EINVALID, "unsupported scheme %q in %q", u.Scheme, raw)
	}
	if u.Hostname() == "" {
		return "", sitecrawl.Errorf(sitecrawl.EINVALID, "missing host in %q", raw)
	}

	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)
	if n.stripWWW {
		u.Host = strings.TrimPrefix(u.Host, "www.")
	}

	path := u.EscapedPath()
	if n.lowercasePath {
		path = strings.ToLower(path)
	}
	path = strings.TrimRight(path, "/")
	u.RawPath = ""
	if unescaped, err := url.PathUnescape(path); err == nil {
		u.Path = unescaped
		u.RawPath = path
	} else {
		u.Path = path
	}

	u.RawQuery = n.query(u.RawQuery)
	u.ForceQuery = false

	return u.String(), nil
}

// query drops tracked parameters and sorts the rest by key.
func (n *Normalizer) query(raw string) string {
	if raw == "" {
		return ""
	}
	// ParseQuery keeps every well-formed pair even when it reports an error.
	values, _ := url.ParseQuery(raw)
	for key := range values {
		if n.tracked(key) {
			delete(values, key)
		}
	}
	return values.Encode()
}

func (n *Normalizer) tracked(key string) bool {
	if _, ok := n.exact[key]; ok {
		return true
	}
	for _, prefix := range n.prefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
