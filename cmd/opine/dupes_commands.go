package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"opine/internal/api"
	"opine/internal/daemonctl"
	"opine/internal/dedupe"
	"opine/internal/logging"
	"opine/internal/respstore"
)

func newDupesCommand(ctx *commandContext) *cobra.Command {
	dupesCmd := &cobra.Command{
		Use:   "dupes",
		Short: "Detect and purge duplicate survey responses",
	}

	dupesCmd.AddCommand(newDupesScanCommand(ctx))
	dupesCmd.AddCommand(newDupesPurgeCommand(ctx))

	return dupesCmd
}

func newDupesScanCommand(ctx *commandContext) *cobra.Command {
	var surveyID, csvPath string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a survey for duplicate responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runScan(ctx, cmd, surveyID)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, report)
			}
			if csvPath != "" {
				if err := writeScanCSV(csvPath, report); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote duplicate report to %s\n", csvPath)
				return nil
			}
			renderScanReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&surveyID, "survey", "", "Survey identifier (required)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write the report as CSV to this path")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	_ = cmd.MarkFlagRequired("survey")
	return cmd
}

// runScan prefers the daemon, whose scan also refreshes the claim-path
// exclusion cache, and falls back to a direct store scan when the
// daemon is down.
func runScan(ctx *commandContext, cmd *cobra.Command, surveyID string) (api.ScanReport, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return api.ScanReport{}, err
	}

	client, err := daemonctl.NewClient(cfg)
	if err != nil {
		return api.ScanReport{}, err
	}
	if client != nil {
		report, scanErr := client.ScanDuplicates(cmd.Context(), surveyID)
		if scanErr == nil {
			return report, nil
		}
		if !daemonctl.IsUnavailable(scanErr) {
			return api.ScanReport{}, scanErr
		}
	}

	var report api.ScanReport
	err = ctx.withStore(cmd, func(store respstore.Store) error {
		scanner := dedupe.NewScanner(store, cfg, logging.NewNop())
		raw, runErr := scanner.Run(cmd.Context(), surveyID)
		if runErr != nil {
			return runErr
		}
		report = api.FromReport(raw)
		return nil
	})
	return report, err
}

func renderScanReport(cmd *cobra.Command, report api.ScanReport) {
	stdout := cmd.OutOrStdout()
	counts := report.Counts
	fmt.Fprintf(stdout, "Scanned %d responses in %d buckets for survey %s\n",
		counts.Scanned, counts.Buckets, report.Survey)

	if len(report.Groups) == 0 {
		fmt.Fprintln(stdout, "No duplicates found")
	} else {
		fmt.Fprintln(stdout, renderTable(
			[]string{"Group", "Interviewer", "Original", "Duplicate", "Δt (ms)"},
			buildScanRows(report),
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
		))
		fmt.Fprintf(stdout, "%d duplicates in %d groups\n", counts.Duplicates, counts.Groups)
	}

	if counts.Truncated > 0 {
		fmt.Fprintf(stdout, "Warning: %d oversized buckets were truncated; results may be incomplete\n", counts.Truncated)
	}
	if counts.Malformed > 0 {
		fmt.Fprintf(stdout, "Warning: %d responses had unusable timestamps and were skipped\n", counts.Malformed)
	}
	for _, msg := range report.Errors {
		fmt.Fprintf(stdout, "Warning: %s\n", msg)
	}
}

func buildScanRows(report api.ScanReport) [][]string {
	var rows [][]string
	for i, group := range report.Groups {
		for _, dupe := range group.Duplicates {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				group.InterviewerID,
				group.Original,
				dupe.ID,
				strconv.FormatInt(dupe.TimeDifferenceMs, 10),
			})
		}
	}
	return rows
}

func writeScanCSV(path string, report api.ScanReport) error {
	csv := renderCSV(
		[]string{"group", "interviewer", "original", "duplicate", "time_difference_ms"},
		buildScanRows(report),
	)
	if err := os.WriteFile(path, []byte(csv+"\n"), 0o644); err != nil {
		return fmt.Errorf("write csv report: %w", err)
	}
	return nil
}

func newDupesPurgeCommand(ctx *commandContext) *cobra.Command {
	var surveyID, reportPath string
	var apply, jsonOut bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete confirmed duplicates, keeping group originals",
		Long: `Purge consumes a duplicate scan and deletes the confirmed copies,
never the group originals. Without --apply it only reports what would
be deleted. Responses under an active review lease are kept either way.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reportPath == "" && strings.TrimSpace(surveyID) == "" {
				return errors.New("either --survey or --from-report is required")
			}
			var report api.ScanReport
			var err error
			if reportPath != "" {
				report, err = readScanReport(reportPath)
			} else {
				report, err = runScan(ctx, cmd, surveyID)
			}
			if err != nil {
				return err
			}
			if surveyID == "" {
				surveyID = report.Survey
			}

			ids := collectDuplicateIDs(report)
			stdout := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(stdout, "No duplicates to purge")
				return nil
			}

			if !apply {
				fmt.Fprintf(stdout, "Would delete %d duplicates across %d groups (dry run; use --apply)\n",
					len(ids), len(report.Groups))
				renderScanReport(cmd, report)
				return nil
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var result api.PurgeResult
			err = ctx.withStore(cmd, func(store respstore.Store) error {
				svc := api.NewMaintenanceService(store, nil, nil, cfg, logging.NewNop())
				var purgeErr error
				result, purgeErr = svc.PurgeDuplicates(cmd.Context(), surveyID, ids)
				return purgeErr
			})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, result)
			}
			fmt.Fprintf(stdout, "Deleted %d of %d duplicates", result.Deleted, result.Requested)
			if result.Retained > 0 {
				fmt.Fprintf(stdout, " (%d retained: under review or already gone)", result.Retained)
			}
			fmt.Fprintln(stdout)
			return nil
		},
	}

	cmd.Flags().StringVar(&surveyID, "survey", "", "Survey identifier (required unless --from-report is set)")
	cmd.Flags().StringVar(&reportPath, "from-report", "", "Purge from a saved JSON scan report instead of rescanning")
	cmd.Flags().BoolVar(&apply, "apply", false, "Actually delete; the default is a dry run")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func readScanReport(path string) (api.ScanReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.ScanReport{}, fmt.Errorf("read scan report: %w", err)
	}
	var report api.ScanReport
	if err := json.Unmarshal(data, &report); err != nil {
		return api.ScanReport{}, fmt.Errorf("parse scan report %s: %w", path, err)
	}
	return report, nil
}

func collectDuplicateIDs(report api.ScanReport) []string {
	var ids []string
	for _, group := range report.Groups {
		for _, dupe := range group.Duplicates {
			if strings.TrimSpace(dupe.ID) == "" {
				continue
			}
			ids = append(ids, dupe.ID)
		}
	}
	return ids
}
