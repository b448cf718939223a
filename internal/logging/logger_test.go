package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"opine/internal/config"
	"opine/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Info("startup message")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "opine.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "startup message") {
		t.Fatalf("expected startup message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	opts := logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	}

	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	opts := logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	}

	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewJSONLoggerEmitsStructuredLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.json")

	opts := logging.Options{
		Format:           "json",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	}
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &line); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if line["msg"] != "json message" {
		t.Fatalf("msg = %v, want %q", line["msg"], "json message")
	}
	if line["level"] != "info" {
		t.Fatalf("level = %v, want info", line["level"])
	}
	if line["k"] != "v" {
		t.Fatalf("k = %v, want v", line["k"])
	}
	if _, ok := line["ts"].(string); !ok {
		t.Fatalf("expected string ts field, got %v", line["ts"])
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")

	opts := logging.Options{
		Format:           "console",
		Level:            "invalid",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	}
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("visible")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "hidden") {
		t.Fatalf("expected debug output suppressed at default level, got %q", content)
	}
	if !strings.Contains(string(content), "visible") {
		t.Fatalf("expected info output at default level, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestSessionIDAppearsOnEveryLine(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "session.json")

	opts := logging.Options{
		Format:           "json",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
		SessionID:        "sess-42",
	}
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("first")
	logger.With(logging.String("k", "v")).Info("second")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	for _, raw := range lines {
		var line map[string]any
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			t.Fatalf("unmarshal log line: %v", err)
		}
		if line[logging.FieldSessionID] != "sess-42" {
			t.Fatalf("session_id = %v, want sess-42", line[logging.FieldSessionID])
		}
	}
}

func TestStreamOptionPublishesEvents(t *testing.T) {
	hub := logging.NewStreamHub(16)
	logPath := filepath.Join(t.TempDir(), "stream.json")

	opts := logging.Options{
		Format:           "json",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
		Stream:           hub,
	}
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("streamed",
		logging.String(logging.FieldComponent, "queue"),
		logging.String(logging.FieldSurveyID, "svy-1"),
	)

	events, _ := hub.Tail(5)
	if len(events) != 1 {
		t.Fatalf("expected 1 streamed event, got %d", len(events))
	}
	if events[0].Message != "streamed" {
		t.Fatalf("message = %q, want streamed", events[0].Message)
	}
	if events[0].Component != "queue" {
		t.Fatalf("component = %q, want queue", events[0].Component)
	}
	if events[0].SurveyID != "svy-1" {
		t.Fatalf("survey_id = %q, want svy-1", events[0].SurveyID)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = logging.WithSurveyID(ctx, "svy-9")
	ctx = logging.WithResponseID(ctx, "resp-3")
	ctx = logging.WithReviewerID(ctx, "rev-7")
	ctx = logging.WithRequestID(ctx, "req-xyz")

	logPath := filepath.Join(t.TempDir(), "context.json")
	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WithContext(ctx, logger).Info("contextual log")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &line); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	want := map[string]string{
		logging.FieldSurveyID:      "svy-9",
		logging.FieldResponseID:    "resp-3",
		logging.FieldReviewerID:    "rev-7",
		logging.FieldCorrelationID: "req-xyz",
	}
	for key, value := range want {
		if line[key] != value {
			t.Fatalf("field %s = %v, want %q", key, line[key], value)
		}
	}
}

func TestContextAccessorsRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := logging.SurveyIDFromContext(ctx); ok {
		t.Fatal("expected no survey id on empty context")
	}
	ctx = logging.WithSurveyID(ctx, "svy-1")
	if got, ok := logging.SurveyIDFromContext(ctx); !ok || got != "svy-1" {
		t.Fatalf("survey id = %q, %v", got, ok)
	}
	// Empty values leave the context untouched.
	same := logging.WithResponseID(ctx, "")
	if same != ctx {
		t.Fatal("expected unchanged context for empty response id")
	}
}
