package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/sitecrawl"
)

// Dependencies holds all services and configuration for command execution.
// Services left nil are built from configuration by the command that needs them.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	DBPath string

	Logger     *slog.Logger
	Fetcher    sitecrawl.Fetcher
	Sink       sitecrawl.Sink
	Sitemaps   sitecrawl.SitemapService
	Normalizer sitecrawl.Normalizer
	Records    sitecrawl.RecordService
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Crawl     CrawlCmd     `cmd:"" help:"Crawl a site from a seed URL"`
	Normalize NormalizeCmd `cmd:"" help:"Print the normalized form of URLs"`
	Records   RecordsCmd   `cmd:"" help:"List records persisted to the SQLite database"`
}

// CrawlCmd is the "crawl" subcommand. Flags override values from the
// config file when set.
type CrawlCmd struct {
	Seed   string `arg:"" optional:"" help:"Seed URL (overrides the config file)"`
	Config string `short:"c" type:"path" help:"YAML config file"`

	Concurrency   int           `short:"n" help:"Maximum concurrent fetches"`
	Retries       int           `default:"-1" help:"Maximum retries per URL (-1 keeps the configured value)"`
	RetryDelay    time.Duration `help:"Base retry delay; retry n waits n times this"`
	ExcludeStatus []int         `name:"exclude-status" help:"HTTP status codes that are never retried (repeatable)"`
	MaxPages      int           `help:"Stop after dispatching this many URLs (0 is unbounded)"`
	RPS           float64       `name:"rps" help:"Requests per second per host (0 disables limiting)"`
	Strip         []string      `name:"strip-param" help:"Query parameter to strip; a trailing * matches by prefix (repeatable)"`
	KeepWWW       bool          `help:"Treat www.host and host as different hosts"`
	Sitemap       bool          `help:"Seed the frontier from the site's sitemaps"`
	Dedup         string        `help:"Seen set implementation (exact or bloom)"`

	Engine    string        `help:"Fetcher engine (http or colly)"`
	UserAgent string        `help:"User-Agent header"`
	Timeout   time.Duration `help:"Per-request timeout"`

	Output   string `short:"o" help:"Append records to this file"`
	Format   string `help:"Output file format (text or jsonl)"`
	DB       string `help:"Append records to this SQLite database"`
	Postgres string `help:"Append records to this Postgres DSN"`

	MetricsAddr string `help:"Serve Prometheus metrics on this address while crawling"`
	LogLevel    string `help:"Log level (debug, info, warn, error)"`
	LogFormat   string `help:"Log format (text or json)"`
	LogFile     string `help:"Write logs to this rotating file instead of stderr"`
}

// NormalizeCmd is the "normalize" subcommand.
type NormalizeCmd struct {
	URLs        []string `arg:"" help:"URLs to normalize"`
	Base        string   `help:"Base URL for resolving relative references"`
	StripParams []string `name:"strip-param" default:"ref,ref_" help:"Query parameter to strip (repeatable)"`
	KeepWWW     bool     `help:"Keep a leading www. in host names"`
}

// RecordsCmd is the "records" subcommand.
type RecordsCmd struct {
	URL    string `help:"Only show records for this URL"`
	Limit  int    `short:"l" default:"50" help:"Maximum records to show (0 is unlimited)"`
	Offset int    `help:"Skip this many records"`
}
