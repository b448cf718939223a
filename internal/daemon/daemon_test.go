package daemon_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"opine/internal/api"
	"opine/internal/daemon"
	"opine/internal/logging"
	"opine/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.SweepInterval = 1
	cfg.Workflow.HealthLogInterval = 1
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop(), nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Backend != "sqlite" {
		t.Fatalf("unexpected backend: %q", status.Backend)
	}
	if status.DatabasePath == "" {
		t.Fatal("expected a database path for the sqlite backend")
	}
	if status.LockFilePath == "" {
		t.Fatal("expected a lock file path")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonSecondInstanceBlocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	store := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, store, logging.NewNop(), nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(first.Stop)

	second, err := daemon.New(cfg, store, logging.NewNop(), nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}
}

func TestDaemonServesStatusOverHTTP(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "secret"
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop(), nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(d.Stop)

	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("expected a bound api address")
	}
	statusURL := fmt.Sprintf("http://%s/api/status", addr)

	resp, err := http.Get(statusURL)
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, statusURL, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authorized status request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var report api.StatusReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !report.Running {
		t.Fatal("expected running daemon in status payload")
	}
	if report.PID <= 0 {
		t.Fatalf("unexpected pid: %d", report.PID)
	}
}

func TestDaemonServesClaimOverHTTP(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seeded := testsupport.NewPending(t, store, "SVY-1", "int-1")

	d, err := daemon.New(cfg, store, logging.NewNop(), nil, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(d.Stop)

	claimURL := fmt.Sprintf("http://%s/api/review/claim", d.APIAddr())
	body := strings.NewReader(`{"reviewerId":"rev-9","surveyId":"SVY-1"}`)
	resp, err := http.Post(claimURL, "application/json", body)
	if err != nil {
		t.Fatalf("claim request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result api.ClaimResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	if !result.Available {
		t.Fatal("expected a claim from the seeded pool")
	}
	if result.Response == nil || result.Response.ID != seeded.ID {
		t.Fatalf("unexpected claim payload: %+v", result.Response)
	}
	if result.Response.AssignedTo != "rev-9" {
		t.Fatalf("expected lease held by rev-9, got %q", result.Response.AssignedTo)
	}
}
