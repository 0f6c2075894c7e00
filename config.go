package sitecrawl

import "time"

// Default crawl settings.
const (
	DefaultMaxConcurrentFetches = 10
	DefaultMaxRetries           = 5
	DefaultRetryBaseDelay       = 3 * time.Second
	DefaultLinkSelector         = "a"
	DefaultLinkAttr             = "href"
	DefaultTitleSelector        = "title"
)

// Seen set implementations.
const (
	DedupExact = "exact"
	DedupBloom = "bloom"
)

// DefaultStripQueryParams returns the tracking parameters removed during
// normalization when none are configured.
func DefaultStripQueryParams() []string {
	return []string{"ref", "ref_"}
}

// Config is the immutable configuration of a single crawl.
type Config struct {
	// Seed is the first URL submitted to the frontier.
	Seed string `yaml:"seed" validate:"required,url"`

	// BaseHost restricts the crawl to one host. Derived from Seed when empty.
	BaseHost string `yaml:"base_host,omitempty"`

	MaxConcurrentFetches int           `yaml:"max_concurrent_fetches" validate:"min=1"`
	MaxRetries           int           `yaml:"max_retries" validate:"min=0"`
	RetryBaseDelay       time.Duration `yaml:"retry_base_delay" validate:"min=0"`
	ExcludedStatusCodes  []int         `yaml:"excluded_status_codes,omitempty" validate:"dive,min=100,max=599"`

	// StripQueryParams lists query parameters removed during normalization.
	// A trailing "*" matches by prefix.
	StripQueryParams []string `yaml:"strip_query_params,omitempty" validate:"dive,required"`
	StripWWW         bool     `yaml:"strip_www"`

	// MaxPages stops admitting new URLs after this many have been
	// dispatched. Zero means unbounded.
	MaxPages int `yaml:"max_pages,omitempty" validate:"min=0"`

	// RequestsPerSecond limits fetch attempts per host. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" validate:"min=0"`

	LinkSelector  string `yaml:"link_selector,omitempty"`
	LinkAttr      string `yaml:"link_attr,omitempty"`
	TitleSelector string `yaml:"title_selector,omitempty"`

	Dedup   string `yaml:"dedup,omitempty" validate:"omitempty,oneof=exact bloom"`
	Sitemap bool   `yaml:"sitemap,omitempty"`

	Match Rules `yaml:"match,omitempty" validate:"dive"`
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentFetches: DefaultMaxConcurrentFetches,
		MaxRetries:           DefaultMaxRetries,
		RetryBaseDelay:       DefaultRetryBaseDelay,
		StripQueryParams:     DefaultStripQueryParams(),
		StripWWW:             true,
		LinkSelector:         DefaultLinkSelector,
		LinkAttr:             DefaultLinkAttr,
		TitleSelector:        DefaultTitleSelector,
		Dedup:                DedupExact,
	}
}

// Validate returns an error if the config contains invalid fields.
func (c *Config) Validate() error {
	if c.Seed == "" {
		return Errorf(EINVALID, "seed URL required")
	}
	if c.MaxConcurrentFetches < 1 {
		return Errorf(EINVALID, "max concurrent fetches must be at least 1")
	}
	if c.MaxRetries < 0 {
		return Errorf(EINVALID, "max retries must not be negative")
	}
	if c.RetryBaseDelay < 0 {
		return Errorf(EINVALID, "retry base delay must not be negative")
	}
	if c.MaxPages < 0 {
		return Errorf(EINVALID, "max pages must not be negative")
	}
	switch c.Dedup {
	case "", DedupExact, DedupBloom:
	default:
		return Errorf(EINVALID, "unknown dedup mode %q", c.Dedup)
	}
	return nil
}
