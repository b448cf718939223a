package daemon

import (
	"log/slog"
	"strings"

	"opine/internal/logging"
)

// subsystemLogger applies any configured per-component level override
// before the logger is handed to a subsystem. The subsystem still tags
// its own component attribute; this only gates verbosity.
func subsystemLogger(overrides map[string]string, logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return logging.NewNop()
	}
	if override := componentOverrideLevel(overrides, component); override != "" {
		return logging.WithLevelOverride(logger, parseComponentLevel(override))
	}
	return logger
}

func componentOverrideLevel(overrides map[string]string, component string) string {
	if len(overrides) == 0 {
		return ""
	}
	component = strings.ToLower(strings.TrimSpace(component))
	if component == "" {
		return ""
	}
	for key, value := range overrides {
		if strings.ToLower(strings.TrimSpace(key)) == component {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func parseComponentLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
