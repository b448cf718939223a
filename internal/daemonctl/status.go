package daemonctl

import (
	"context"
	"strings"
	"time"

	"opine/internal/api"
	"opine/internal/config"
	"opine/internal/respstore"
)

// Snapshot aggregates daemon status for CLI rendering. When the daemon
// API is unreachable the health counts are read straight from the
// store so `opine status` still answers.
type Snapshot struct {
	Report    api.StatusReport `json:"report"`
	Checks    []api.StatusLine `json:"checks"`
	Reachable bool             `json:"reachable"`
}

// BuildStatusSnapshot collects daemon status over the API with offline
// fallbacks for store-backed counts.
func BuildStatusSnapshot(ctx context.Context, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, ErrDaemonNotRunning
	}

	snapshot := &Snapshot{}
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if client != nil {
		statusCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		report, statusErr := client.Status(statusCtx)
		cancel()
		if statusErr == nil {
			snapshot.Report = report
			snapshot.Reachable = true
		} else if !IsUnavailable(statusErr) && !IsTimeout(statusErr) {
			return nil, statusErr
		}
	}

	if !snapshot.Reachable {
		snapshot.Report.Backend = cfg.Store.Backend
		snapshot.Report.DatabasePath = cfg.DatabasePath()

		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		store, openErr := respstore.Open(queryCtx, cfg)
		if openErr == nil {
			health, healthErr := store.Health(queryCtx, time.Now().UTC())
			_ = store.Close()
			if healthErr == nil {
				snapshot.Report.Health = api.FromHealthSummary(health)
			}
		}
	}

	snapshot.Checks = BuildSystemChecks(cfg, snapshot.Reachable && snapshot.Report.Running)
	return snapshot, nil
}

// BuildSystemChecks resolves status lines combining runtime state and
// config checks.
func BuildSystemChecks(cfg *config.Config, daemonRunning bool) []api.StatusLine {
	lines := make([]api.StatusLine, 0, 4)
	if daemonRunning {
		lines = append(lines, api.StatusLine{Label: "Opine", Severity: "ok", Detail: "Running"})
	} else {
		lines = append(lines, api.StatusLine{Label: "Opine", Severity: "warn", Detail: "Not running (run `opine start`)"})
	}

	backend := strings.TrimSpace(cfg.Store.Backend)
	switch backend {
	case "postgres":
		if strings.TrimSpace(cfg.Store.PostgresDSN) != "" {
			lines = append(lines, api.StatusLine{Label: "Store", Severity: "ok", Detail: "PostgreSQL"})
		} else {
			lines = append(lines, api.StatusLine{Label: "Store", Severity: "error", Detail: "PostgreSQL selected but postgres_dsn is empty"})
		}
	default:
		lines = append(lines, api.StatusLine{Label: "Store", Severity: "ok", Detail: "SQLite (" + cfg.DatabasePath() + ")"})
	}

	if strings.TrimSpace(cfg.Paths.APIToken) != "" {
		lines = append(lines, api.StatusLine{Label: "API Auth", Severity: "ok", Detail: "Bearer token configured"})
	} else {
		lines = append(lines, api.StatusLine{Label: "API Auth", Severity: "info", Detail: "No token (open access on " + cfg.Paths.APIBind + ")"})
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, api.StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, api.StatusLine{Label: "Notifications", Severity: "warn", Detail: "Not configured"})
	}

	return lines
}
