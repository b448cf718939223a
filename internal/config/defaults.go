package config

const (
	defaultDataDir                  = "~/.local/share/opine"
	defaultLogDir                   = "~/.local/share/opine/logs"
	defaultAPIBind                  = "127.0.0.1:7493"
	defaultStoreBackend             = BackendSQLite
	defaultPostgresMaxConns         = 8
	defaultPostgresMinConns         = 2
	defaultLeaseMinutes             = 30
	defaultClaimPageSize            = 25
	defaultClaimPasses              = 3
	defaultSkipCooldownMinutes      = 120
	defaultBucketMinSize            = 2
	defaultBucketMaxSize            = 200
	defaultDedupCacheTTLSeconds     = 300
	defaultScanPageSize             = 500
	defaultScanWorkers              = 4
	defaultScanBurst                = 1
	defaultSweepIntervalSeconds     = 300
	defaultHealthLogIntervalSeconds = 3600
	defaultNotifyRequestTimeout     = 10
	defaultNotifyDedupWindowSeconds = 600
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultLogRetentionDays         = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Store: Store{
			Backend:          defaultStoreBackend,
			PostgresMaxConns: defaultPostgresMaxConns,
			PostgresMinConns: defaultPostgresMinConns,
		},
		Review: Review{
			LeaseMinutes:        defaultLeaseMinutes,
			ClaimPageSize:       defaultClaimPageSize,
			ClaimPasses:         defaultClaimPasses,
			SkipCooldownMinutes: defaultSkipCooldownMinutes,
		},
		Dedup: Dedup{
			BucketMinSize:   defaultBucketMinSize,
			BucketMaxSize:   defaultBucketMaxSize,
			CacheTTLSeconds: defaultDedupCacheTTLSeconds,
		},
		Scan: Scan{
			PageSize: defaultScanPageSize,
			Workers:  defaultScanWorkers,
			Burst:    defaultScanBurst,
		},
		Workflow: Workflow{
			SweepInterval:     defaultSweepIntervalSeconds,
			HealthLogInterval: defaultHealthLogIntervalSeconds,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyRequestTimeout,
			Scans:              true,
			Maintenance:        true,
			Errors:             true,
			DedupWindowSeconds: defaultNotifyDedupWindowSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
