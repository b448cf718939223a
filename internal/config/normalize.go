package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	c.normalizeReview()
	c.normalizeDedup()
	c.normalizeScan()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("OPINE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeStore() {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultStoreBackend
	}
	c.Store.PostgresDSN = strings.TrimSpace(c.Store.PostgresDSN)
	if c.Store.PostgresDSN == "" {
		if value, ok := os.LookupEnv("OPINE_POSTGRES_DSN"); ok {
			c.Store.PostgresDSN = strings.TrimSpace(value)
		}
	}
	if c.Store.PostgresMaxConns <= 0 {
		c.Store.PostgresMaxConns = defaultPostgresMaxConns
	}
	if c.Store.PostgresMinConns <= 0 {
		c.Store.PostgresMinConns = defaultPostgresMinConns
	}
	if c.Store.PostgresMinConns > c.Store.PostgresMaxConns {
		c.Store.PostgresMinConns = c.Store.PostgresMaxConns
	}
}

func (c *Config) normalizeReview() {
	if c.Review.LeaseMinutes <= 0 {
		c.Review.LeaseMinutes = defaultLeaseMinutes
	}
	if c.Review.ClaimPageSize <= 0 {
		c.Review.ClaimPageSize = defaultClaimPageSize
	}
	if c.Review.ClaimPasses <= 0 {
		c.Review.ClaimPasses = defaultClaimPasses
	}
	if c.Review.SkipCooldownMinutes < 0 {
		c.Review.SkipCooldownMinutes = defaultSkipCooldownMinutes
	}
}

func (c *Config) normalizeDedup() {
	if c.Dedup.BucketMinSize < 2 {
		c.Dedup.BucketMinSize = defaultBucketMinSize
	}
	if c.Dedup.BucketMaxSize <= 0 {
		c.Dedup.BucketMaxSize = defaultBucketMaxSize
	}
	if c.Dedup.CacheTTLSeconds < 0 {
		c.Dedup.CacheTTLSeconds = defaultDedupCacheTTLSeconds
	}
}

func (c *Config) normalizeScan() {
	if c.Scan.PageSize <= 0 {
		c.Scan.PageSize = defaultScanPageSize
	}
	if c.Scan.Workers <= 0 {
		c.Scan.Workers = defaultScanWorkers
	}
	if c.Scan.RatePerSecond < 0 {
		c.Scan.RatePerSecond = 0
	}
	if c.Scan.Burst <= 0 {
		c.Scan.Burst = defaultScanBurst
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		c.Notifications.DedupWindowSeconds = defaultNotifyDedupWindowSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
