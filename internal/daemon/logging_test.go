package daemon

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestComponentOverrideLevelMatchesCaseInsensitive(t *testing.T) {
	overrides := map[string]string{" Dedupe ": " warn "}
	if got := componentOverrideLevel(overrides, "dedupe"); got != "warn" {
		t.Fatalf("expected trimmed override, got %q", got)
	}
	if got := componentOverrideLevel(overrides, "lease"); got != "" {
		t.Fatalf("expected no override for lease, got %q", got)
	}
	if got := componentOverrideLevel(nil, "dedupe"); got != "" {
		t.Fatalf("expected no override with nil map, got %q", got)
	}
}

func TestSubsystemLoggerSuppressesBelowOverride(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger := subsystemLogger(map[string]string{"dedupe": "warn"}, base, "dedupe")
	logger.Info("quiet")
	logger.Warn("loud")

	output := buf.String()
	if strings.Contains(output, "quiet") {
		t.Fatalf("info record should be suppressed, got %q", output)
	}
	if !strings.Contains(output, "loud") {
		t.Fatalf("warn record should pass, got %q", output)
	}
}

func TestSubsystemLoggerWithoutOverridePassesThrough(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger := subsystemLogger(nil, base, "lease")
	if logger != base {
		t.Fatal("expected the base logger when no override applies")
	}

	if got := subsystemLogger(nil, nil, "lease"); got == nil {
		t.Fatal("nil base must yield a usable no-op logger")
	}
}
