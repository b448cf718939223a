package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateReview(); err != nil {
		return err
	}
	if err := c.validateDedup(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendSQLite:
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn must be set when store.backend is postgres (or set OPINE_POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendSQLite, BackendPostgres, c.Store.Backend)
	}
	return nil
}

func (c *Config) validateReview() error {
	if err := ensurePositiveMap(map[string]int{
		"review.lease_minutes":   c.Review.LeaseMinutes,
		"review.claim_page_size": c.Review.ClaimPageSize,
		"review.claim_passes":    c.Review.ClaimPasses,
	}); err != nil {
		return err
	}
	if c.Review.SkipCooldownMinutes < 0 {
		return errors.New("review.skip_cooldown_minutes must be >= 0")
	}
	return nil
}

func (c *Config) validateDedup() error {
	if c.Dedup.BucketMinSize < 2 {
		return errors.New("dedup.bucket_min_size must be >= 2; singleton groups cannot hold duplicates")
	}
	if c.Dedup.BucketMaxSize < c.Dedup.BucketMinSize {
		return errors.New("dedup.bucket_max_size must be >= dedup.bucket_min_size")
	}
	if c.Dedup.CacheTTLSeconds < 0 {
		return errors.New("dedup.cache_ttl_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.PageSize <= 0 {
		return errors.New("scan.page_size must be positive")
	}
	if c.Scan.Workers < 1 {
		return errors.New("scan.workers must be >= 1")
	}
	if c.Scan.RatePerSecond < 0 {
		return errors.New("scan.rate_per_second must be >= 0")
	}
	if c.Scan.Burst < 1 {
		return errors.New("scan.burst must be >= 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.SweepInterval < 0 {
		return errors.New("workflow.sweep_interval must be >= 0 (0 disables the sweeper)")
	}
	if c.Workflow.HealthLogInterval < 0 {
		return errors.New("workflow.health_log_interval must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
