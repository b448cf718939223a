package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"opine/internal/api"
	"opine/internal/daemonctl"
	"opine/internal/daemonrun"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var diagnostic bool
	var logLevel string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the opine daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pidPath := daemonctl.PIDFilePath(cfg)
			if alive, pid, infoErr := daemonctl.ProcessInfo(pidPath); infoErr == nil && alive {
				return fmt.Errorf("daemon already running (pid %d)", pid)
			}
			level := logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:   level,
				Diagnostic: diagnostic,
			})
		},
	}

	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the opine daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			pid, err := daemonctl.StopProcess(daemonctl.PIDFilePath(cfg), 5*time.Second, force)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Daemon stopped (pid %d)\n", pid)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Kill the process if it ignores the stop request")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and review queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, snapshot)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range snapshot.Checks {
				fmt.Fprintln(stdout, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
			}
			if snapshot.Reachable && snapshot.Report.PID > 0 {
				fmt.Fprintln(stdout, renderStatusLine("PID", statusInfo, strconv.Itoa(snapshot.Report.PID), colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Review Queue", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildHealthRows(snapshot.Report.Health)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "No responses recorded")
				return nil
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"State", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

// buildHealthRows lays out lifecycle counts in pipeline order, leaving
// out states with nothing in them, then appends leased and total rows.
func buildHealthRows(health api.HealthReport) [][]string {
	if health.Total == 0 {
		return nil
	}
	states := []struct {
		label string
		count int
	}{
		{"In Progress", health.InProgress},
		{"Submitted", health.Submitted},
		{"Awaiting Review", health.AwaitingReview},
		{"Approved", health.Approved},
		{"Rejected", health.Rejected},
		{"Abandoned", health.Abandoned},
	}
	rows := make([][]string, 0, len(states)+2)
	for _, state := range states {
		if state.count == 0 {
			continue
		}
		rows = append(rows, []string{state.label, strconv.Itoa(state.count)})
	}
	rows = append(rows, []string{"Under Review", strconv.Itoa(health.Leased)})
	rows = append(rows, []string{"Total", strconv.Itoa(health.Total)})
	return rows
}
