package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"opine/internal/api"
	"opine/internal/daemonctl"
	"opine/internal/logging"
	"opine/internal/respstore"
)

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	var req api.RestoreRequest
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Move a cohort of responses between statuses",
		Long: `Restore walks every response of the cohort currently in --from and
moves it to --to. Rows that changed status underneath the walk are
left alone, so re-running a finished restore is a no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runRestore(ctx, cmd, req)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d of %d matching responses from %s to %s\n",
				result.Updated, result.Matched, req.FromStatus, req.ToStatus)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.FromStatus, "from", "", "Status to move responses out of (required)")
	cmd.Flags().StringVar(&req.ToStatus, "to", "", "Status to move responses into (required)")
	cmd.Flags().StringVar(&req.SurveyID, "survey", "", "Limit to one survey")
	cmd.Flags().StringVar(&req.InterviewerID, "interviewer", "", "Limit to one interviewer")
	cmd.Flags().StringVar(&req.QCBatch, "batch", "", "Limit to one QC batch")
	cmd.Flags().StringVar(&req.SelectedAC, "ac", "", "Limit to one assembly constituency")
	cmd.Flags().StringVar(&req.InterviewMode, "mode", "", "Limit to one interview mode")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// runRestore prefers the daemon, which also invalidates its duplicate
// exclusion cache and pushes a notification, and falls back to the
// store when the daemon is down.
func runRestore(ctx *commandContext, cmd *cobra.Command, req api.RestoreRequest) (api.RestoreResult, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return api.RestoreResult{}, err
	}

	client, err := daemonctl.NewClient(cfg)
	if err != nil {
		return api.RestoreResult{}, err
	}
	if client != nil {
		result, restoreErr := client.Restore(cmd.Context(), req)
		if restoreErr == nil {
			return result, nil
		}
		if !daemonctl.IsUnavailable(restoreErr) {
			return api.RestoreResult{}, restoreErr
		}
	}

	var result api.RestoreResult
	err = ctx.withStore(cmd, func(store respstore.Store) error {
		svc := api.NewMaintenanceService(store, nil, nil, cfg, logging.NewNop())
		var restoreErr error
		result, restoreErr = svc.RestoreCohort(cmd.Context(), req)
		return restoreErr
	})
	return result, err
}
