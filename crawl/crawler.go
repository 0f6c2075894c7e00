// Package crawl implements the crawl engine: the URL frontier, the
// bounded-concurrency fetch stage with linear retry, and the
// parse, extract and match pipeline that feeds links back into the
// frontier.
package crawl

import (
	"context"
	"net/url"
	"sync/atomic"

	"github.com/fwojciec/sitecrawl"
)

// Crawler orchestrates a single-host crawl.
type Crawler struct {
	Fetcher    sitecrawl.Fetcher
	Parser     sitecrawl.Parser
	Normalizer sitecrawl.Normalizer
	Sink       sitecrawl.Sink

	// Optional collaborators.
	Sitemaps    sitecrawl.SitemapService
	SeenSet     sitecrawl.SeenSet
	RateLimiter sitecrawl.DomainLimiter
	Events      sitecrawl.EventFunc

	// Predicates run after the rules compiled from Config.Match.
	Predicates sitecrawl.Chain

	Config sitecrawl.Config
}

// Result holds the outcome of a crawl.
type Result struct {
	Dispatched  int
	Fetched     int
	Failed      int
	ParseFailed int
	Matched     int
	Persisted   int
	SinkFailed  int
}

type counters struct {
	fetched     atomic.Int64
	failed      atomic.Int64
	parseFailed atomic.Int64
	matched     atomic.Int64
	persisted   atomic.Int64
	sinkFailed  atomic.Int64
}

// Run crawls from seed until every reachable in-scope URL has been
// processed, Config.MaxPages URLs have been dispatched, or ctx is
// canceled. Cancellation stops admission of new URLs; fetches already
// admitted run to completion. Run returns an error only when the
// configuration or seed is invalid.
func (c *Crawler) Run(ctx context.Context, seed string) (*Result, error) {
	cfg := c.Config
	if seed != "" {
		cfg.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	chain, err := cfg.Match.Chain()
	if err != nil {
		return nil, err
	}
	chain = append(chain, c.Predicates...)

	normalized, err := c.Normalizer.Normalize(cfg.Seed, "")
	if err != nil {
		return nil, err
	}
	baseHost := cfg.BaseHost
	if baseHost == "" {
		u, err := url.Parse(normalized)
		if err != nil {
			return nil, sitecrawl.WrapError(sitecrawl.EINVALID, err, "invalid seed %q", cfg.Seed)
		}
		baseHost = u.Host
	}

	frontier := NewFrontier(c.Normalizer, baseHost, c.SeenSet)
	frontier.StrictHost = !cfg.StripWWW
	defer frontier.Close()

	stage := NewFetchStage(c.Fetcher, cfg.MaxConcurrentFetches, RetryPolicy{
		MaxRetries:          cfg.MaxRetries,
		BaseDelay:           cfg.RetryBaseDelay,
		ExcludedStatusCodes: cfg.ExcludedStatusCodes,
	})
	stage.Limiter = c.RateLimiter
	stage.Events = c.Events

	links := LinkExtractor{Selector: cfg.LinkSelector, Attr: cfg.LinkAttr}
	if links.Selector == "" {
		links.Selector = sitecrawl.DefaultLinkSelector
	}
	if links.Attr == "" {
		links.Attr = sitecrawl.DefaultLinkAttr
	}
	matcher := &MatchStage{
		Predicate:     chain,
		Sink:          c.Sink,
		TitleSelector: cfg.TitleSelector,
		Events:        c.Events,
	}

	urls := frontier.Subscribe(ctx)
	c.submit(frontier, normalized, "")
	if cfg.Sitemap && c.Sitemaps != nil {
		// Sitemap failures only cost the extra seeds.
		if found, err := c.Sitemaps.DiscoverURLs(ctx, normalized); err == nil {
			for _, u := range found {
				c.submit(frontier, u, normalized)
			}
		}
	}

	// Documents already fetched are still processed after cancellation.
	procCtx := context.WithoutCancel(ctx)

	var (
		stats      counters
		pending    atomic.Int64
		wake       = make(chan struct{}, 1)
		dispatched int
	)
	done := func(r FetchResult) {
		defer func() {
			pending.Add(-1)
			select {
			case wake <- struct{}{}:
			default:
			}
		}()
		c.process(procCtx, r, frontier, links, matcher, &stats)
	}

loop:
	for {
		if cfg.MaxPages > 0 && dispatched >= cfg.MaxPages {
			break
		}
		// Completed work has already submitted its links, so once nothing
		// is pending the log can only grow through this loop.
		if pending.Load() == 0 && dispatched == frontier.Len() {
			break
		}

		select {
		case <-ctx.Done():
			break loop
		case <-wake:
		case u, ok := <-urls:
			if !ok {
				break loop
			}
			pending.Add(1)
			if err := stage.Start(ctx, u, done); err != nil {
				pending.Add(-1)
				break loop
			}
			dispatched++
		}
	}

	frontier.Close()
	stage.Wait()

	return &Result{
		Dispatched:  dispatched,
		Fetched:     int(stats.fetched.Load()),
		Failed:      int(stats.failed.Load()),
		ParseFailed: int(stats.parseFailed.Load()),
		Matched:     int(stats.matched.Load()),
		Persisted:   int(stats.persisted.Load()),
		SinkFailed:  int(stats.sinkFailed.Load()),
	}, nil
}

// process runs the document stage, link extraction and matching for one
// fetch result.
func (c *Crawler) process(ctx context.Context, r FetchResult, frontier *Frontier, links LinkExtractor, matcher *MatchStage, stats *counters) {
	if r.Err != nil {
		stats.failed.Add(1)
		return
	}
	stats.fetched.Add(1)

	doc, err := BuildDocument(c.Parser, r)
	if err != nil {
		stats.parseFailed.Add(1)
		c.emit(sitecrawl.Event{Type: sitecrawl.EventParseFailed, URL: r.URL, Err: err})
		return
	}

	for _, link := range links.Extract(doc) {
		c.submit(frontier, link, doc.URL)
	}

	matched, err := matcher.Process(ctx, doc)
	if !matched {
		return
	}
	stats.matched.Add(1)
	if err != nil {
		stats.sinkFailed.Add(1)
		return
	}
	stats.persisted.Add(1)
}

func (c *Crawler) submit(frontier *Frontier, raw, base string) {
	if u, ok := frontier.Submit(raw, base); ok {
		c.emit(sitecrawl.Event{Type: sitecrawl.EventDiscovered, URL: u})
	}
}

func (c *Crawler) emit(e sitecrawl.Event) {
	if c.Events != nil {
		c.Events(e)
	}
}
