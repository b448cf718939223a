// Command opined runs the survey quality-control daemon in the
// foreground: review lease queue, duplicate scanning, maintenance
// sweeps, and the HTTP control API.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"opine/internal/config"
	"opine/internal/daemonrun"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "configuration file path")
	logLevel := flag.String("log-level", "", "override the configured log level")
	diagnostic := flag.Bool("diagnostic", false, "enable diagnostic mode with separate DEBUG logs")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	level := *logLevel
	if level == "" {
		level = cfg.Logging.Level
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:   level,
		Diagnostic: *diagnostic,
	}); err != nil {
		log.Fatalf("opined: %v", err)
	}
}
