package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/anaviationstore/listingsync/pkg/errors"
)

func validConfig() *Config {
	return &Config{
		SellerURL:         "https://market.example/member/42",
		FetchMode:         "http",
		DiscoveryMode:     "auto",
		SyncBackend:       "csv",
		SyncTab:           "listings",
		CSVDir:            "./out",
		BatchSize:         30,
		ItemDelayMin:      700 * time.Millisecond,
		ItemDelayMax:      1400 * time.Millisecond,
		MaxDiscoveryIters: 60,
		StableRounds:      3,
		MaxRetries:        3,
		BackoffFactor:     2.0,
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no seller input", func(c *Config) { c.SellerURL = "" }},
		{"seller id without origin", func(c *Config) { c.SellerURL = ""; c.SellerID = "42" }},
		{"relative seller url", func(c *Config) { c.SellerURL = "market.example/member/42" }},
		{"unknown fetch mode", func(c *Config) { c.FetchMode = "carrier-pigeon" }},
		{"unknown discovery mode", func(c *Config) { c.DiscoveryMode = "teleport" }},
		{"unknown sync backend", func(c *Config) { c.SyncBackend = "tape" }},
		{"csv backend without dir", func(c *Config) { c.CSVDir = "" }},
		{"postgres backend without dsn", func(c *Config) { c.SyncBackend = "postgres" }},
		{"empty tab", func(c *Config) { c.SyncTab = "" }},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
		{"inverted item delays", func(c *Config) { c.ItemDelayMax = c.ItemDelayMin / 2 }},
		{"zero stable rounds", func(c *Config) { c.StableRounds = 0 }},
		{"backoff factor below one", func(c *Config) { c.BackoffFactor = 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
		})
	}
}

func TestValidateSellerIDWithOrigin(t *testing.T) {
	cfg := validConfig()
	cfg.SellerURL = ""
	cfg.SellerID = "42"
	cfg.MarketplaceOrigin = "https://market.example"
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"BATCH_SIZE", "ITEM_DELAY_MIN_MS", "ITEM_DELAY_MAX_MS",
		"BATCH_PAUSE_EVERY", "MAX_DISCOVERY_ITERATIONS", "STABLE_ROUNDS",
		"MAX_RETRIES", "BACKOFF_BASE_SECONDS", "BACKOFF_CAP_SECONDS",
		"SYNC_BACKEND", "DISCOVERY_MODE",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, 30, cfg.BatchSize)
	assert.Equal(t, 700*time.Millisecond, cfg.ItemDelayMin)
	assert.Equal(t, 1400*time.Millisecond, cfg.ItemDelayMax)
	assert.Equal(t, 25, cfg.BatchPauseEvery)
	assert.Equal(t, 60, cfg.MaxDiscoveryIters)
	assert.Equal(t, 3, cfg.StableRounds)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 3*time.Second, cfg.BackoffBase)
	assert.Equal(t, 20*time.Second, cfg.BackoffCap)
	assert.Equal(t, "csv", cfg.SyncBackend)
	assert.Equal(t, "auto", cfg.DiscoveryMode)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SELLER_URL", "https://market.example/shop/x")
	t.Setenv("FETCH_MODE", "browser")
	t.Setenv("BATCH_SIZE", "10")
	t.Setenv("BLOCK_SECONDS", "120")

	cfg := LoadConfig()
	assert.Equal(t, "https://market.example/shop/x", cfg.SellerURL)
	assert.Equal(t, "browser", cfg.FetchMode)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 2*time.Minute, cfg.BlockTime)
}
