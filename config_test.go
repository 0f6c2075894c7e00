package sitecrawl_test

import (
	"testing"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := sitecrawl.DefaultConfig()

	assert.Equal(t, 10, cfg.MaxConcurrentFetches)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 3*time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, []string{"ref", "ref_"}, cfg.StripQueryParams)
	assert.Equal(t, "a", cfg.LinkSelector)
	assert.Equal(t, "href", cfg.LinkAttr)
	assert.Equal(t, sitecrawl.DedupExact, cfg.Dedup)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := func() sitecrawl.Config {
		cfg := sitecrawl.DefaultConfig()
		cfg.Seed = "https://example.com"
		return cfg
	}

	t.Run("accepts defaults with seed", func(t *testing.T) {
		t.Parallel()

		cfg := valid()
		assert.NoError(t, cfg.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*sitecrawl.Config)
	}{
		{"missing seed", func(c *sitecrawl.Config) { c.Seed = "" }},
		{"zero concurrency", func(c *sitecrawl.Config) { c.MaxConcurrentFetches = 0 }},
		{"negative retries", func(c *sitecrawl.Config) { c.MaxRetries = -1 }},
		{"negative delay", func(c *sitecrawl.Config) { c.RetryBaseDelay = -time.Second }},
		{"negative max pages", func(c *sitecrawl.Config) { c.MaxPages = -1 }},
		{"unknown dedup", func(c *sitecrawl.Config) { c.Dedup = "fuzzy" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.Equal(t, sitecrawl.EINVALID, sitecrawl.ErrorCode(err))
		})
	}
}
