package daemonctl

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"opine/internal/api"
	"opine/internal/testsupport"
)

func TestBuildStatusSnapshotFromAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.StatusReport{
			Running: true,
			PID:     99,
			Backend: "sqlite",
			Health:  api.HealthReport{Total: 12, AwaitingReview: 4},
		})
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = srv.URL

	snapshot, err := BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if !snapshot.Reachable || !snapshot.Report.Running {
		t.Fatalf("expected a reachable running daemon, got %+v", snapshot)
	}
	if snapshot.Report.Health.AwaitingReview != 4 {
		t.Fatalf("expected 4 awaiting review, got %d", snapshot.Report.Health.AwaitingReview)
	}
	if len(snapshot.Checks) == 0 || snapshot.Checks[0].Severity != "ok" {
		t.Fatalf("expected an ok daemon check, got %+v", snapshot.Checks)
	}
}

func TestBuildStatusSnapshotOfflineFallsBackToStore(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = addr
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewPending(t, store, "SVY-1", "int-1")
	testsupport.NewPending(t, store, "SVY-1", "int-2")
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	snapshot, err := BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snapshot.Reachable || snapshot.Report.Running {
		t.Fatalf("expected an unreachable daemon, got %+v", snapshot.Report)
	}
	if snapshot.Report.Backend != "sqlite" {
		t.Fatalf("expected sqlite backend fallback, got %q", snapshot.Report.Backend)
	}
	if snapshot.Report.Health.AwaitingReview != 2 {
		t.Fatalf("expected 2 awaiting review from the store, got %d", snapshot.Report.Health.AwaitingReview)
	}
	if snapshot.Checks[0].Severity != "warn" {
		t.Fatalf("expected a warn daemon check, got %+v", snapshot.Checks[0])
	}
}

func TestBuildSystemChecksPostgresWithoutDSN(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Store.Backend = "postgres"
	cfg.Store.PostgresDSN = ""

	lines := BuildSystemChecks(cfg, false)
	var storeLine *api.StatusLine
	for i := range lines {
		if lines[i].Label == "Store" {
			storeLine = &lines[i]
		}
	}
	if storeLine == nil || storeLine.Severity != "error" {
		t.Fatalf("expected an error store check, got %+v", lines)
	}
}

func TestBuildSystemChecksNotificationsConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = "opine-alerts"

	lines := BuildSystemChecks(cfg, true)
	found := false
	for _, line := range lines {
		if line.Label == "Notifications" && line.Severity == "ok" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an ok notifications check, got %+v", lines)
	}
}
