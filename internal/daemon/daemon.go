package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"opine/internal/api"
	"opine/internal/config"
	"opine/internal/dedupe"
	"opine/internal/dupecache"
	"opine/internal/lease"
	"opine/internal/logging"
	"opine/internal/notifications"
	"opine/internal/respstore"
)

// Daemon coordinates the background loops and the HTTP API and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    respstore.Store
	manager  *lease.Manager
	scanner  *dedupe.Scanner
	cache    *dupecache.Cache
	provider *dupecache.Provider
	notifier notifications.Service

	reviewSvc      *api.ReviewService
	dedupeSvc      *api.DedupeService
	maintenanceSvc *api.MaintenanceService
	queueSvc       *api.QueueService

	logHub     *logging.StreamHub
	logArchive *logging.EventArchive

	server *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon with initialized dependencies. The exclusion
// cache, duplicate scanner, and lease manager are wired together here so
// claiming passes over known duplicates without any caller assembling
// the chain. hub and archive may be nil; the logs endpoint then serves
// empty pages.
func New(cfg *config.Config, store respstore.Store, logger *slog.Logger, hub *logging.StreamHub, archive *logging.EventArchive) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	overrides := cfg.Logging.ComponentOverrides
	cache := dupecache.New(cfg.DedupCacheTTL(), subsystemLogger(overrides, logger, "dupecache"))
	scanner := dedupe.NewScanner(store, cfg, subsystemLogger(overrides, logger, "dedupe"))
	provider := dupecache.NewProvider(cache, scanner, subsystemLogger(overrides, logger, "dupecache"))
	manager := lease.NewManager(store, cfg, subsystemLogger(overrides, logger, "lease"), lease.WithExcluder(provider))

	lockPath := filepath.Join(cfg.Paths.LogDir, "opined.lock")
	return &Daemon{
		cfg:            cfg,
		logger:         logger,
		store:          store,
		manager:        manager,
		scanner:        scanner,
		cache:          cache,
		provider:       provider,
		notifier:       notifications.NewService(cfg),
		reviewSvc:      api.NewReviewService(manager),
		dedupeSvc:      api.NewDedupeService(scanner, provider),
		maintenanceSvc: api.NewMaintenanceService(store, manager, provider, cfg, subsystemLogger(overrides, logger, "maintenance")),
		queueSvc:       api.NewQueueService(store),
		logHub:         hub,
		logArchive:     archive,
		lockPath:       lockPath,
		lock:           flock.New(lockPath),
	}, nil
}

// LogStream exposes the in-memory log hub backing the logs endpoint.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.logHub
}

// LogArchive exposes the on-disk event journal for catch-up reads.
func (d *Daemon) LogArchive() *logging.EventArchive {
	return d.logArchive
}

// Start acquires the daemon lock, brings up the API server when one is
// bound, and launches the sweep and health loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another opine daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	server, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.abortStart()
		return err
	}
	if server != nil {
		if err := server.start(d.ctx); err != nil {
			d.abortStart()
			return fmt.Errorf("start api server: %w", err)
		}
	}
	d.server = server

	if interval := d.cfg.SweepInterval(); interval > 0 {
		d.wg.Add(1)
		go d.runSweepLoop(d.ctx, interval)
	}
	if interval := d.cfg.HealthLogInterval(); interval > 0 {
		d.wg.Add(1)
		go d.runHealthLoop(d.ctx, interval)
	}

	d.running.Store(true)
	d.log().Info("opine daemon started",
		logging.String("lock", d.lockPath),
		logging.String("backend", d.cfg.Store.Backend))
	return nil
}

func (d *Daemon) abortStart() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	_ = d.lock.Unlock()
}

// Stop halts the background loops, shuts the API server down, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.server.stop()
	d.server = nil
	if err := d.lock.Unlock(); err != nil {
		d.log().Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.log().Info("opine daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	d.cache.Close()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports current daemon runtime information.
func (d *Daemon) Status(ctx context.Context) api.StatusReport {
	report := api.StatusReport{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Backend:      d.cfg.Store.Backend,
		LockFilePath: d.lockPath,
	}
	if d.cfg.Store.Backend == config.BackendSQLite {
		report.DatabasePath = d.cfg.DatabasePath()
	}
	health, err := d.queueSvc.Health(ctx)
	if err != nil {
		d.log().Warn("health summary unavailable", logging.Error(err))
	} else {
		report.Health = health
	}
	return report
}

// APIAddr returns the bound API listener address, or empty when no
// server is running. Useful when the configuration binds port zero.
func (d *Daemon) APIAddr() string {
	if d.server == nil || d.server.listener == nil {
		return ""
	}
	return d.server.listener.Addr().String()
}

// TestNotification sends a test push using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// runSweepLoop clears expired leases on the configured cadence. Expiry
// is already passive, so a failed sweep costs nothing but staleness;
// failures are reported and the loop keeps going.
func (d *Daemon) runSweepLoop(ctx context.Context, interval time.Duration) {
	defer d.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleared, err := d.manager.SweepExpired(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logging.ErrorWithContext(d.log(), "lease sweep failed", "lease_sweep_failed",
					logging.String(logging.FieldErrorHint, "check store connectivity"),
					logging.Error(err))
				if nerr := d.notifier.NotifyError(ctx, err, "lease sweep"); nerr != nil {
					d.log().Warn("notification delivery failed", logging.Error(nerr))
				}
				continue
			}
			if cleared > 0 {
				if nerr := d.notifier.NotifyLeaseSweep(ctx, cleared); nerr != nil {
					d.log().Warn("notification delivery failed", logging.Error(nerr))
				}
			}
		}
	}
}

// runHealthLoop periodically logs the store's lifecycle counts so the
// daemon log carries a heartbeat operators can grep.
func (d *Daemon) runHealthLoop(ctx context.Context, interval time.Duration) {
	defer d.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health, err := d.queueSvc.Health(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				d.log().Error("health probe failed", logging.Error(err))
				continue
			}
			d.log().Info("store health",
				logging.Int("total", health.Total),
				logging.Int("awaiting_review", health.AwaitingReview),
				logging.Int("leased", health.Leased),
				logging.Int("abandoned", health.Abandoned))
		}
	}
}

func (d *Daemon) log() *slog.Logger {
	return logging.NewComponentLogger(d.logger, "daemon")
}
