package daemonrun

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestEnsureCurrentLogPointer(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "opine-20260301T090000.000Z.log")
	if err := os.WriteFile(first, []byte("first\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("pointer: %v", err)
	}
	current := filepath.Join(dir, "opine.log")
	data, err := os.ReadFile(current)
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "first\n" {
		t.Fatalf("pointer reads %q", data)
	}

	// A second run must repoint the stable path, not fail on the
	// leftover from the first.
	second := filepath.Join(dir, "opine-20260301T100000.000Z.log")
	if err := os.WriteFile(second, []byte("second\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("repoint: %v", err)
	}
	data, err = os.ReadFile(current)
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "second\n" {
		t.Fatalf("pointer reads %q after repoint", data)
	}
}

func TestEnsureCurrentLogPointerNoop(t *testing.T) {
	if err := ensureCurrentLogPointer("", "target"); err != nil {
		t.Fatalf("empty dir: %v", err)
	}
	if err := ensureCurrentLogPointer(t.TempDir(), ""); err != nil {
		t.Fatalf("empty target: %v", err)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opined.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("parse pid %q: %v", data, err)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid file holds %d, want %d", pid, os.Getpid())
	}
}
