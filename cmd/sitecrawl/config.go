package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Fetcher engines.
const (
	EngineHTTP  = "http"
	EngineColly = "colly"
)

// Sink types.
const (
	SinkFile     = "file"
	SinkSQLite   = "sqlite"
	SinkPostgres = "postgres"
)

// FileConfig is the layout of the YAML config file.
type FileConfig struct {
	Crawl   sitecrawl.Config `yaml:"crawl"`
	Fetcher FetcherConfig    `yaml:"fetcher"`
	Bloom   BloomConfig      `yaml:"bloom"`
	Sink    SinkConfig       `yaml:"sink"`
	Log     LogConfig        `yaml:"log"`
	Metrics MetricsConfig    `yaml:"metrics"`
}

// FetcherConfig selects and tunes the fetch transport.
type FetcherConfig struct {
	Engine      string        `yaml:"engine" validate:"oneof=http colly"`
	UserAgent   string        `yaml:"user_agent"`
	Timeout     time.Duration `yaml:"timeout" validate:"min=0"`
	MaxBodySize int64         `yaml:"max_body_size" validate:"min=0"`
}

// BloomConfig sizes the approximate seen set.
type BloomConfig struct {
	Capacity          uint    `yaml:"capacity"`
	FalsePositiveRate float64 `yaml:"false_positive_rate" validate:"min=0,max=1"`
}

// SinkConfig selects where matching records are written.
type SinkConfig struct {
	Type string `yaml:"type" validate:"oneof=file sqlite postgres"`

	// Path is the output file for the file sink, where "" or "-" means
	// stdout, and the database file for the sqlite sink.
	Path   string `yaml:"path"`
	Format string `yaml:"format" validate:"omitempty,oneof=text jsonl"`

	DSN   string `yaml:"dsn" validate:"required_if=Type postgres"`
	Table string `yaml:"table"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"oneof=text json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"min=0"`
	MaxBackups int    `yaml:"max_backups" validate:"min=0"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// DefaultFileConfig returns the configuration used when no file is given.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Crawl: sitecrawl.DefaultConfig(),
		Fetcher: FetcherConfig{
			Engine: EngineHTTP,
		},
		Sink: SinkConfig{
			Type:   SinkFile,
			Format: "text",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig reads path over the defaults. An empty path returns the defaults.
// Unknown keys are rejected.
func LoadConfig(path string) (FileConfig, error) {
	cfg := DefaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, sitecrawl.WrapError(sitecrawl.EINVALID, err, "decode config %s", path)
	}
	return cfg, nil
}

// ValidateConfig checks cfg with struct tags, then with the crawl config's own rules.
func ValidateConfig(cfg *FileConfig) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return sitecrawl.WrapError(sitecrawl.EINVALID, err,
				"config field %s failed %q validation", first.Namespace(), first.Tag())
		}
		return sitecrawl.WrapError(sitecrawl.EINVALID, err, "invalid config")
	}
	return cfg.Crawl.Validate()
}

// apply overrides cfg with every flag that was set.
func (c *CrawlCmd) apply(cfg *FileConfig) {
	if c.Seed != "" {
		cfg.Crawl.Seed = c.Seed
	}
	if c.Concurrency > 0 {
		cfg.Crawl.MaxConcurrentFetches = c.Concurrency
	}
	if c.Retries >= 0 {
		cfg.Crawl.MaxRetries = c.Retries
	}
	if c.RetryDelay > 0 {
		cfg.Crawl.RetryBaseDelay = c.RetryDelay
	}
	if len(c.ExcludeStatus) > 0 {
		cfg.Crawl.ExcludedStatusCodes = c.ExcludeStatus
	}
	if c.MaxPages > 0 {
		cfg.Crawl.MaxPages = c.MaxPages
	}
	if c.RPS > 0 {
		cfg.Crawl.RequestsPerSecond = c.RPS
	}
	if len(c.Strip) > 0 {
		cfg.Crawl.StripQueryParams = c.Strip
	}
	if c.KeepWWW {
		cfg.Crawl.StripWWW = false
	}
	if c.Sitemap {
		cfg.Crawl.Sitemap = true
	}
	if c.Dedup != "" {
		cfg.Crawl.Dedup = c.Dedup
	}

	if c.Engine != "" {
		cfg.Fetcher.Engine = c.Engine
	}
	if c.UserAgent != "" {
		cfg.Fetcher.UserAgent = c.UserAgent
	}
	if c.Timeout > 0 {
		cfg.Fetcher.Timeout = c.Timeout
	}

	switch {
	case c.Postgres != "":
		cfg.Sink.Type = SinkPostgres
		cfg.Sink.DSN = c.Postgres
	case c.DB != "":
		cfg.Sink.Type = SinkSQLite
		cfg.Sink.Path = c.DB
	case c.Output != "":
		cfg.Sink.Type = SinkFile
		cfg.Sink.Path = c.Output
	}
	if c.Format != "" {
		cfg.Sink.Format = c.Format
	}

	if c.MetricsAddr != "" {
		cfg.Metrics.Addr = c.MetricsAddr
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	if c.LogFormat != "" {
		cfg.Log.Format = c.LogFormat
	}
	if c.LogFile != "" {
		cfg.Log.File = c.LogFile
	}
}
