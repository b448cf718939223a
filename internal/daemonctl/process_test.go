package daemonctl

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"opine/internal/testsupport"
)

func TestReadPIDMissingFile(t *testing.T) {
	pid, err := ReadPID(filepath.Join(t.TempDir(), "opined.pid"))
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != 0 {
		t.Fatalf("expected pid 0 for a missing file, got %d", pid)
	}
}

func TestReadPIDParsesValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opined.pid")
	if err := os.WriteFile(path, []byte("1234\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	pid, err := ReadPID(path)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != 1234 {
		t.Fatalf("expected 1234, got %d", pid)
	}
}

func TestReadPIDRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opined.pid")
	if err := os.WriteFile(path, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	if _, err := ReadPID(path); err == nil {
		t.Fatal("expected an error for a malformed pid file")
	}
}

func TestProcessInfoCurrentProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opined.pid")
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	alive, pid, err := ProcessInfo(path)
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if !alive || pid != os.Getpid() {
		t.Fatalf("expected current process alive, got alive=%v pid=%d", alive, pid)
	}
}

func TestProcessAliveRejectsNonPositive(t *testing.T) {
	if ProcessAlive(0) || ProcessAlive(-1) {
		t.Fatal("non-positive pids should never read as alive")
	}
}

func TestStopProcessNoPIDFile(t *testing.T) {
	_, err := StopProcess(filepath.Join(t.TempDir(), "opined.pid"), time.Second, false)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestStopProcessRefusesSelf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opined.pid")
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	if _, err := StopProcess(path, time.Second, false); err == nil {
		t.Fatal("expected a refusal to stop the current process")
	}
}

func TestPIDFilePath(t *testing.T) {
	if got := PIDFilePath(nil); got != "" {
		t.Fatalf("expected empty path for nil config, got %q", got)
	}
	cfg := testsupport.NewConfig(t)
	want := filepath.Join(cfg.Paths.LogDir, "opined.pid")
	if got := PIDFilePath(cfg); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
