package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"opine/internal/api"
	"opine/internal/daemonctl"
)

func TestBuildHealthRowsSkipsEmptyStates(t *testing.T) {
	health := api.HealthReport{Total: 10, AwaitingReview: 6, Approved: 3, Abandoned: 1, Leased: 2}

	rows := buildHealthRows(health)
	var labels []string
	for _, row := range rows {
		labels = append(labels, row[0])
	}
	want := []string{"Awaiting Review", "Approved", "Abandoned", "Under Review", "Total"}
	if len(labels) != len(want) {
		t.Fatalf("unexpected rows: %v", labels)
	}
	for i, label := range want {
		if labels[i] != label {
			t.Fatalf("row %d: got %q, want %q", i, labels[i], label)
		}
	}
	if rows[len(rows)-1][1] != "10" {
		t.Fatalf("total row wrong: %v", rows[len(rows)-1])
	}
}

func TestBuildHealthRowsEmptyStore(t *testing.T) {
	if rows := buildHealthRows(api.HealthReport{}); rows != nil {
		t.Fatalf("expected no rows for an empty store, got %v", rows)
	}
}

func newStatusTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.StatusReport{
			Running: true,
			PID:     4242,
			Backend: "sqlite",
			Health:  api.HealthReport{Total: 3, AwaitingReview: 2, Approved: 1, Leased: 1},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStatusCommandRendersQueue(t *testing.T) {
	srv := newStatusTestServer(t)
	cfgPath := writeCLIConfig(t, srv.URL)

	out, err := runCLI(t, "--config", cfgPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"System Status", "Running", "4242", "Review Queue", "Awaiting Review"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestStatusCommandJSON(t *testing.T) {
	srv := newStatusTestServer(t)
	cfgPath := writeCLIConfig(t, srv.URL)

	out, err := runCLI(t, "--config", cfgPath, "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var snapshot daemonctl.Snapshot
	if err := json.Unmarshal([]byte(out), &snapshot); err != nil {
		t.Fatalf("parse json output: %v\n%s", err, out)
	}
	if !snapshot.Reachable || snapshot.Report.PID != 4242 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if snapshot.Report.Health.AwaitingReview != 2 {
		t.Fatalf("unexpected health: %+v", snapshot.Report.Health)
	}
}

func TestStopCommandNotRunning(t *testing.T) {
	cfgPath := writeCLIConfig(t, unusedBindAddr(t))

	out, err := runCLI(t, "--config", cfgPath, "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(out, "Daemon is not running") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
