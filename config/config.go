package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anaviationstore/listingsync/pkg/errors"
)

// Config represents the application configuration for one seller sync run
type Config struct {
	// Seller input: either a full profile/shop URL, or a numeric id plus origin
	SellerURL         string
	SellerID          string
	MarketplaceOrigin string

	// DomainHint is the marketplace country hint used for default currency (e.g. "es", "co.uk")
	DomainHint string

	// FetchMode selects the fetch capability: "http" or "browser"
	FetchMode string
	Locale    string

	// DiscoveryMode selects how the seller index is walked: "auto",
	// "pages" or "scroll". The marketplace UI decides this, not the
	// fetch capability; a browser run against a paginated shop needs
	// "pages" (or "auto", which detects it).
	DiscoveryMode string

	// Sync target configuration
	SyncBackend          string // csv, postgres or redis
	SyncTab              string
	CSVDir               string
	PostgresDSN          string
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration for the cross-run block marker
	MemcacheAddr string
	BlockTime    time.Duration

	// Crawl tuning
	BatchSize         int
	ItemDelayMin      time.Duration
	ItemDelayMax      time.Duration
	BatchPauseEvery   int
	BatchPauseMin     time.Duration
	BatchPauseMax     time.Duration
	MaxDiscoveryIters int
	StableRounds      int
	ScrollDelay       time.Duration
	MaxRetries        int
	BackoffBase       time.Duration
	BackoffFactor     float64
	BackoffCap        time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redisStreamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	blockSeconds, _ := strconv.Atoi(getEnv("BLOCK_SECONDS", "300"))
	batchSize, _ := strconv.Atoi(getEnv("BATCH_SIZE", "30"))
	itemDelayMin, _ := strconv.Atoi(getEnv("ITEM_DELAY_MIN_MS", "700"))
	itemDelayMax, _ := strconv.Atoi(getEnv("ITEM_DELAY_MAX_MS", "1400"))
	batchPauseEvery, _ := strconv.Atoi(getEnv("BATCH_PAUSE_EVERY", "25"))
	batchPauseMin, _ := strconv.Atoi(getEnv("BATCH_PAUSE_MIN_SECONDS", "5"))
	batchPauseMax, _ := strconv.Atoi(getEnv("BATCH_PAUSE_MAX_SECONDS", "8"))
	maxDiscoveryIters, _ := strconv.Atoi(getEnv("MAX_DISCOVERY_ITERATIONS", "60"))
	stableRounds, _ := strconv.Atoi(getEnv("STABLE_ROUNDS", "3"))
	scrollDelay, _ := strconv.Atoi(getEnv("SCROLL_DELAY_MS", "700"))
	maxRetries, _ := strconv.Atoi(getEnv("MAX_RETRIES", "3"))
	backoffBase, _ := strconv.Atoi(getEnv("BACKOFF_BASE_SECONDS", "3"))
	backoffFactor, _ := strconv.ParseFloat(getEnv("BACKOFF_FACTOR", "2.0"), 64)
	backoffCap, _ := strconv.Atoi(getEnv("BACKOFF_CAP_SECONDS", "20"))

	return &Config{
		SellerURL:            getEnv("SELLER_URL", ""),
		SellerID:             getEnv("SELLER_ID", ""),
		MarketplaceOrigin:    getEnv("MARKETPLACE_ORIGIN", ""),
		DomainHint:           getEnv("DOMAIN_HINT", "es"),
		FetchMode:            getEnv("FETCH_MODE", "http"),
		Locale:               getEnv("LOCALE", "es-ES"),
		DiscoveryMode:        getEnv("DISCOVERY_MODE", "auto"),
		SyncBackend:          getEnv("SYNC_BACKEND", "csv"),
		SyncTab:              getEnv("SYNC_TAB", "listings"),
		CSVDir:               getEnv("CSV_DIR", "./out"),
		PostgresDSN:          getEnv("POSTGRES_DSN", ""),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "listings"),
		RedisStreamMaxLength: redisStreamMaxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		BlockTime:            time.Duration(blockSeconds) * time.Second,
		BatchSize:            batchSize,
		ItemDelayMin:         time.Duration(itemDelayMin) * time.Millisecond,
		ItemDelayMax:         time.Duration(itemDelayMax) * time.Millisecond,
		BatchPauseEvery:      batchPauseEvery,
		BatchPauseMin:        time.Duration(batchPauseMin) * time.Second,
		BatchPauseMax:        time.Duration(batchPauseMax) * time.Second,
		MaxDiscoveryIters:    maxDiscoveryIters,
		StableRounds:         stableRounds,
		ScrollDelay:          time.Duration(scrollDelay) * time.Millisecond,
		MaxRetries:           maxRetries,
		BackoffBase:          time.Duration(backoffBase) * time.Second,
		BackoffFactor:        backoffFactor,
		BackoffCap:           time.Duration(backoffCap) * time.Second,
		Environment:          getEnv("LISTINGSYNC_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration before any network activity
func (c *Config) Validate() error {
	if c.SellerURL == "" && c.SellerID == "" {
		return errors.NewConfiguration("SELLER_URL or SELLER_ID is required", nil)
	}
	if c.SellerURL == "" && c.MarketplaceOrigin == "" {
		return errors.NewConfiguration("MARKETPLACE_ORIGIN is required when only SELLER_ID is set", nil)
	}
	if c.SellerURL != "" && !strings.HasPrefix(c.SellerURL, "http") {
		return errors.NewConfiguration("SELLER_URL must be an absolute URL", nil)
	}
	switch c.FetchMode {
	case "http", "browser":
	default:
		return errors.NewConfiguration("FETCH_MODE must be http or browser", nil)
	}
	switch c.DiscoveryMode {
	case "auto", "pages", "scroll":
	default:
		return errors.NewConfiguration("DISCOVERY_MODE must be auto, pages or scroll", nil)
	}
	switch c.SyncBackend {
	case "csv":
		if c.CSVDir == "" {
			return errors.NewConfiguration("CSV_DIR is required for the csv sync backend", nil)
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.NewConfiguration("POSTGRES_DSN is required for the postgres sync backend", nil)
		}
	case "redis":
		if c.RedisAddr == "" {
			return errors.NewConfiguration("REDIS_ADDR is required for the redis sync backend", nil)
		}
	default:
		return errors.NewConfiguration("SYNC_BACKEND must be csv, postgres or redis", nil)
	}
	if c.SyncTab == "" {
		return errors.NewConfiguration("SYNC_TAB must not be empty", nil)
	}
	if c.BatchSize <= 0 {
		return errors.NewConfiguration("BATCH_SIZE must be positive", nil)
	}
	if c.ItemDelayMax < c.ItemDelayMin {
		return errors.NewConfiguration("ITEM_DELAY_MAX_MS must not be below ITEM_DELAY_MIN_MS", nil)
	}
	if c.MaxDiscoveryIters <= 0 || c.StableRounds <= 0 {
		return errors.NewConfiguration("discovery iteration settings must be positive", nil)
	}
	if c.MaxRetries <= 0 || c.BackoffFactor < 1.0 {
		return errors.NewConfiguration("retry settings must be positive", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
