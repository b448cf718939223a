package testsupport

import (
	"path/filepath"
	"testing"

	"opine/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLeaseMinutes overrides the review lease duration.
func WithLeaseMinutes(minutes int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Review.LeaseMinutes = minutes
	}
}

// WithClaimBounds overrides the claim page size and pass count.
func WithClaimBounds(pageSize, passes int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Review.ClaimPageSize = pageSize
		b.cfg.Review.ClaimPasses = passes
	}
}

// WithBucketCap overrides the duplicate-detection bucket cap.
func WithBucketCap(max int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dedup.BucketMaxSize = max
	}
}

// WithSkipCooldownMinutes overrides how long skips deprioritize a response.
func WithSkipCooldownMinutes(minutes int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Review.SkipCooldownMinutes = minutes
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
