package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Storage backend identifiers accepted by [store] backend.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Store selects and tunes the response storage backend.
type Store struct {
	Backend          string `toml:"backend"`
	PostgresDSN      string `toml:"postgres_dsn"`
	PostgresMaxConns int    `toml:"postgres_max_conns"`
	PostgresMinConns int    `toml:"postgres_min_conns"`
}

// Review contains configuration for the review assignment queue.
type Review struct {
	// LeaseMinutes is how long a claimed response stays assigned before
	// the lease lapses and other reviewers may take it.
	LeaseMinutes int `toml:"lease_minutes"`
	// ClaimPageSize is how many candidates one claim pass fetches.
	ClaimPageSize int `toml:"claim_page_size"`
	// ClaimPasses bounds how many candidate pages a single claim call
	// works through before reporting that no work is available.
	ClaimPasses int `toml:"claim_passes"`
	// SkipCooldownMinutes is how long a skipped response is deprioritized
	// before it competes for assignment on equal footing again.
	SkipCooldownMinutes int `toml:"skip_cooldown_minutes"`
}

// Dedup contains configuration for duplicate detection.
type Dedup struct {
	// BucketMinSize is the smallest (survey, interviewer) group worth
	// comparing; singleton groups cannot contain duplicates.
	BucketMinSize int `toml:"bucket_min_size"`
	// BucketMaxSize caps how many responses of one group are compared.
	// Oversized groups are truncated and flagged in the scan report.
	BucketMaxSize   int `toml:"bucket_max_size"`
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`
}

// Scan contains configuration for paged store traversal.
type Scan struct {
	PageSize int `toml:"page_size"`
	// Workers bounds how many buckets a duplicate scan compares at once.
	Workers int `toml:"workers"`
	// RatePerSecond throttles page fetches; 0 disables pacing.
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	// SweepInterval is the seconds between expired-lease sweeps; 0
	// disables the sweeper and leaves expiry purely passive.
	SweepInterval     int `toml:"sweep_interval"`
	HealthLogInterval int `toml:"health_log_interval"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	Scans              bool   `toml:"scans"`
	Maintenance        bool   `toml:"maintenance"`
	Errors             bool   `toml:"errors"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
	// ComponentOverrides raises or lowers the minimum level per
	// subsystem (lease, dedupe, dupecache, maintenance) without
	// changing the global level.
	ComponentOverrides map[string]string `toml:"component_overrides"`
}

// Config encapsulates all configuration values for Opine.
//
// Configuration sections by subsystem:
//   - Paths: directories, API bind address, and API token
//   - Store: storage backend selection (sqlite or postgres)
//   - Review: lease timing and claim bounds for the review queue
//   - Dedup: duplicate-detection bucket sizing and cache TTL
//   - Scan: page size and pacing for full-store traversals
//   - Workflow: daemon sweep and health-log intervals
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Store         Store         `toml:"store"`
	Review        Review        `toml:"review"`
	Dedup         Dedup         `toml:"dedup"`
	Scan          Scan          `toml:"scan"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/opine/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/opine/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("opine.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database file location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "opine.db")
}

// LeaseTTL returns the review lease duration.
func (c *Config) LeaseTTL() time.Duration {
	return time.Duration(c.Review.LeaseMinutes) * time.Minute
}

// SkipCooldown returns how long skipped responses stay deprioritized.
func (c *Config) SkipCooldown() time.Duration {
	return time.Duration(c.Review.SkipCooldownMinutes) * time.Minute
}

// DedupCacheTTL returns the lifetime of cached duplicate-exclusion sets.
func (c *Config) DedupCacheTTL() time.Duration {
	return time.Duration(c.Dedup.CacheTTLSeconds) * time.Second
}

// SweepInterval returns the daemon lease-sweep cadence; zero disables it.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Workflow.SweepInterval) * time.Second
}

// HealthLogInterval returns the daemon health-logging cadence.
func (c *Config) HealthLogInterval() time.Duration {
	return time.Duration(c.Workflow.HealthLogInterval) * time.Second
}

// NotifyDedupWindow returns how long identical error notifications are
// suppressed after one is delivered; zero disables suppression.
func (c *Config) NotifyDedupWindow() time.Duration {
	return time.Duration(c.Notifications.DedupWindowSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
