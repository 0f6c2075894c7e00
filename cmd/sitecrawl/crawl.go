package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/bloom"
	"github.com/fwojciec/sitecrawl/colly"
	"github.com/fwojciec/sitecrawl/crawl"
	"github.com/fwojciec/sitecrawl/fs"
	"github.com/fwojciec/sitecrawl/goquery"
	crawlhttp "github.com/fwojciec/sitecrawl/http"
	"github.com/fwojciec/sitecrawl/postgres"
	crawlprom "github.com/fwojciec/sitecrawl/prometheus"
	crawlslog "github.com/fwojciec/sitecrawl/slog"
	"github.com/fwojciec/sitecrawl/sqlite"
	"github.com/fwojciec/sitecrawl/whatwg"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	cfg, err := LoadConfig(c.Config)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitecrawl.ErrorMessage(err))
		return err
	}
	c.apply(&cfg)
	if err := ValidateConfig(&cfg); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitecrawl.ErrorMessage(err))
		return err
	}

	logger := deps.Logger
	if logger == nil {
		l, closer, err := newLogger(cfg.Log, deps.Stderr)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer closer.Close()
		logger = l
	}

	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = newFetcher(cfg.Fetcher)
	}
	defer fetcher.Close()

	sink := deps.Sink
	if sink == nil {
		s, closeSink, err := openSink(deps.Ctx, cfg.Sink, deps)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", sitecrawl.ErrorMessage(err))
			return err
		}
		defer closeSink()
		sink = s
	}

	sitemaps := deps.Sitemaps
	if sitemaps == nil {
		sitemaps = crawlhttp.NewSitemapService(nil)
	}

	metrics, err := crawlprom.NewMetrics(nil)
	if err != nil {
		return err
	}

	crawler := &crawl.Crawler{
		Fetcher: crawlslog.NewLoggingFetcher(fetcher, logger),
		Parser:  goquery.NewParser(),
		Normalizer: whatwg.NewNormalizer(
			whatwg.WithStripParams(cfg.Crawl.StripQueryParams...),
			whatwg.WithStripWWW(cfg.Crawl.StripWWW),
		),
		Sink:     crawlslog.NewLoggingSink(sink, logger),
		Sitemaps: crawlslog.NewLoggingSitemapService(sitemaps, logger),
		Events:   sitecrawl.Events(crawlslog.NewEventLogger(logger), metrics.Observe),
		Config:   cfg.Crawl,
	}
	if cfg.Crawl.Dedup == sitecrawl.DedupBloom {
		crawler.SeenSet = bloom.NewSet(cfg.Bloom.Capacity, cfg.Bloom.FalsePositiveRate)
	}
	if cfg.Crawl.RequestsPerSecond > 0 {
		crawler.RateLimiter = crawl.NewDomainLimiter(cfg.Crawl.RequestsPerSecond)
	}

	logger.Info("crawl started",
		"seed", cfg.Crawl.Seed,
		"concurrency", cfg.Crawl.MaxConcurrentFetches,
		"engine", cfg.Fetcher.Engine,
		"sink", cfg.Sink.Type,
	)
	begin := time.Now()

	result, err := runCrawl(deps.Ctx, crawler, cfg.Metrics.Addr, metrics, logger)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitecrawl.ErrorMessage(err))
		return err
	}

	logger.Info("crawl finished",
		"dispatched", result.Dispatched,
		"persisted", result.Persisted,
		"duration", time.Since(begin),
	)
	printResult(deps.Stderr, result)
	return nil
}

// runCrawl runs the crawler, serving metrics on addr alongside it when
// addr is set. The metrics server stops when the crawl ends.
func runCrawl(ctx context.Context, crawler *crawl.Crawler, addr string, metrics *crawlprom.Metrics, logger *slog.Logger) (*crawl.Result, error) {
	if addr == "" {
		return crawler.Run(ctx, "")
	}

	crawlCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(crawlCtx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	var result *crawl.Result
	g.Go(func() error {
		defer cancel()
		r, err := crawler.Run(gctx, "")
		result = r
		return err
	})
	g.Go(func() error {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

func newFetcher(cfg FetcherConfig) sitecrawl.Fetcher {
	if cfg.Engine == EngineColly {
		return colly.New(colly.Config{
			UserAgent:   cfg.UserAgent,
			Timeout:     cfg.Timeout,
			MaxBodySize: int(cfg.MaxBodySize),
		})
	}
	var opts []crawlhttp.Option
	if cfg.UserAgent != "" {
		opts = append(opts, crawlhttp.WithUserAgent(cfg.UserAgent))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, crawlhttp.WithTimeout(cfg.Timeout))
	}
	if cfg.MaxBodySize > 0 {
		opts = append(opts, crawlhttp.WithMaxBodySize(cfg.MaxBodySize))
	}
	return crawlhttp.NewFetcher(opts...)
}

// openSink opens the configured sink. The returned func releases it.
func openSink(ctx context.Context, cfg SinkConfig, deps *Dependencies) (sitecrawl.Sink, func(), error) {
	switch cfg.Type {
	case SinkSQLite:
		path := cfg.Path
		if path == "" {
			path = deps.DBPath
		}
		db := sqlite.NewDB(path)
		if err := db.Open(); err != nil {
			return nil, nil, fmt.Errorf("failed to open database at %q: %w", path, err)
		}
		return sqlite.NewRecordService(db), func() { _ = db.Close() }, nil
	case SinkPostgres:
		store, err := postgres.NewRecordStore(ctx, postgres.Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		if cfg.Path == "" || cfg.Path == "-" {
			a, err := fs.NewAppender(deps.Stdout, cfg.Format)
			if err != nil {
				return nil, nil, err
			}
			return a, func() {}, nil
		}
		a, err := fs.OpenAppender(cfg.Path, cfg.Format)
		if err != nil {
			return nil, nil, err
		}
		return a, func() { _ = a.Close() }, nil
	}
}

func printResult(w io.Writer, r *crawl.Result) {
	fmt.Fprintf(w, "Dispatched %d, fetched %d, failed %d, parse failures %d\n",
		r.Dispatched, r.Fetched, r.Failed, r.ParseFailed)
	fmt.Fprintf(w, "Matched %d, persisted %d, sink failures %d\n",
		r.Matched, r.Persisted, r.SinkFailed)
}
