package http

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/sitecrawl"
)

// maxSitemapDepth bounds how deep nested sitemap indexes are followed.
const maxSitemapDepth = 5

// Ensure SitemapService implements sitecrawl.SitemapService.
var _ sitecrawl.SitemapService = (*SitemapService)(nil)

// SitemapService discovers page URLs from a site's sitemaps. robots.txt is
// read only to locate sitemaps.
type SitemapService struct {
	client *http.Client
}

// NewSitemapService creates a new SitemapService with the given HTTP client.
// If client is nil, http.DefaultClient is used.
func NewSitemapService(client *http.Client) *SitemapService {
	if client == nil {
		client = http.DefaultClient
	}
	return &SitemapService{client: client}
}

// sitemapRef is a sitemap waiting to be read and how deep in the index
// tree it was found.
type sitemapRef struct {
	url   string
	depth int
}

// DiscoverURLs returns the deduplicated page URLs listed in the sitemaps of
// baseURL's host, in the order they were found. URLs on other hosts are
// dropped. When baseURL has a path, only URLs under that path are kept.
// Sitemaps that cannot be fetched or parsed are skipped. Returns an empty
// slice when the site has no sitemap.
func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, sitecrawl.Errorf(sitecrawl.EINVALID, "invalid base URL %q", baseURL)
	}
	root := &url.URL{Scheme: base.Scheme, Host: base.Host}
	prefix := strings.TrimSuffix(base.Path, "/")

	queue := make([]sitemapRef, 0, 4)
	for _, u := range s.locateSitemaps(ctx, root) {
		queue = append(queue, sitemapRef{url: u})
	}

	urls := []string{}
	seenSitemaps := make(map[string]bool)
	seenURLs := make(map[string]bool)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref := queue[0]
		queue = queue[1:]
		if seenSitemaps[ref.url] || ref.depth > maxSitemapDepth {
			continue
		}
		seenSitemaps[ref.url] = true

		doc, err := s.readSitemap(ctx, ref.url)
		if err != nil {
			continue
		}

		switch doc.Root().Tag {
		case "sitemapindex":
			for _, loc := range locs(doc.Root(), "sitemap") {
				queue = append(queue, sitemapRef{url: loc, depth: ref.depth + 1})
			}
		case "urlset":
			for _, loc := range locs(doc.Root(), "url") {
				if seenURLs[loc] || !inScope(loc, base.Host, prefix) {
					continue
				}
				seenURLs[loc] = true
				urls = append(urls, loc)
			}
		}
	}
	return urls, nil
}

// locateSitemaps returns the Sitemap: entries of robots.txt, falling back
// to /sitemap.xml.
func (s *SitemapService) locateSitemaps(ctx context.Context, root *url.URL) []string {
	robotsURL := root.ResolveReference(&url.URL{Path: "/robots.txt"}).String()
	if body, err := s.get(ctx, robotsURL); err == nil {
		defer body.Close()
		var sitemaps []string
		scanner := bufio.NewScanner(body)
		for scanner.Scan() {
			key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "sitemap") {
				continue
			}
			if value = strings.TrimSpace(value); value != "" {
				sitemaps = append(sitemaps, value)
			}
		}
		if len(sitemaps) > 0 {
			return sitemaps
		}
	}
	return []string{root.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String()}
}

func (s *SitemapService) readSitemap(ctx context.Context, sitemapURL string) (*etree.Document, error) {
	body, err := s.get(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(body); err != nil {
		return nil, fmt.Errorf("parsing sitemap XML %s: %w", sitemapURL, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("empty sitemap XML %s", sitemapURL)
	}
	return doc, nil
}

func (s *SitemapService) get(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &sitecrawl.FetchError{URL: target, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &sitecrawl.FetchError{URL: target, Status: resp.StatusCode}
	}
	return resp.Body, nil
}

// locs returns the trimmed, non-empty <loc> text of every child element
// named tag.
func locs(root *etree.Element, tag string) []string {
	var out []string
	for _, el := range root.SelectElements(tag) {
		loc := el.SelectElement("loc")
		if loc == nil {
			continue
		}
		if v := strings.TrimSpace(loc.Text()); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// inScope reports whether rawURL is on host and, when prefix is set, at or
// below prefix on a path segment boundary.
func inScope(rawURL, host, prefix string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || !strings.EqualFold(u.Host, host) {
		return false
	}
	if prefix == "" {
		return true
	}
	return u.Path == prefix || strings.HasPrefix(u.Path, prefix+"/")
}
