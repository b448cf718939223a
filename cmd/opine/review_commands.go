package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"opine/internal/api"
	"opine/internal/daemonctl"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Claim and resolve review assignments",
	}

	reviewCmd.AddCommand(newReviewClaimCommand(ctx))
	reviewCmd.AddCommand(newReviewRenewCommand(ctx))
	reviewCmd.AddCommand(newReviewReleaseCommand(ctx))
	reviewCmd.AddCommand(newReviewSkipCommand(ctx))

	return reviewCmd
}

func newReviewClaimCommand(ctx *commandContext) *cobra.Command {
	var reviewerID, surveyID, mode, ac, batch string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim the next reviewable response",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				result, err := client.Claim(cmd.Context(), api.ClaimRequest{
					ReviewerID:    reviewerID,
					SurveyID:      surveyID,
					InterviewMode: mode,
					SelectedAC:    ac,
					QCBatch:       batch,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, result)
				}
				stdout := cmd.OutOrStdout()
				if !result.Available {
					fmt.Fprintln(stdout, "No reviewable responses available")
					return nil
				}
				resp := result.Response
				fmt.Fprintf(stdout, "Claimed response %s\n", resp.ID)
				fmt.Fprintf(stdout, "  Survey:       %s\n", resp.SurveyID)
				fmt.Fprintf(stdout, "  Interviewer:  %s\n", resp.InterviewerID)
				if resp.InterviewMode != "" {
					fmt.Fprintf(stdout, "  Mode:         %s\n", resp.InterviewMode)
				}
				fmt.Fprintf(stdout, "  Lease expires %s\n", result.ExpiresAt)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reviewerID, "reviewer", "", "Reviewer identifier (required)")
	cmd.Flags().StringVar(&surveyID, "survey", "", "Survey identifier (required)")
	cmd.Flags().StringVar(&mode, "mode", "", "Filter by interview mode")
	cmd.Flags().StringVar(&ac, "ac", "", "Filter by assembly constituency")
	cmd.Flags().StringVar(&batch, "batch", "", "Filter by QC batch")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	_ = cmd.MarkFlagRequired("reviewer")
	_ = cmd.MarkFlagRequired("survey")
	return cmd
}

func newReviewRenewCommand(ctx *commandContext) *cobra.Command {
	var reviewerID string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "renew <response-id>",
		Short: "Extend the lease on a claimed response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				result, err := client.Renew(cmd.Context(), api.RenewRequest{
					ResponseID: args[0],
					ReviewerID: reviewerID,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, result)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Lease extended to %s\n", result.ExpiresAt)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reviewerID, "reviewer", "", "Reviewer identifier (required)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}

func newReviewReleaseCommand(ctx *commandContext) *cobra.Command {
	var reviewerID, outcome, feedback string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "release <response-id>",
		Short: "Record a review verdict and free the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verdict := strings.ToLower(strings.TrimSpace(outcome))
			if verdict != "approved" && verdict != "rejected" {
				return fmt.Errorf("outcome must be approved or rejected, got %q", outcome)
			}
			return ctx.withClient(func(client *daemonctl.Client) error {
				result, err := client.Release(cmd.Context(), api.ReleaseRequest{
					ResponseID: args[0],
					ReviewerID: reviewerID,
					Outcome:    verdict,
					Feedback:   feedback,
				})
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, result)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Response %s %s\n", args[0], verdict)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reviewerID, "reviewer", "", "Reviewer identifier (required)")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Review verdict: approved or rejected (required)")
	cmd.Flags().StringVar(&feedback, "feedback", "", "Feedback recorded with the verdict")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	_ = cmd.MarkFlagRequired("reviewer")
	_ = cmd.MarkFlagRequired("outcome")
	return cmd
}

func newReviewSkipCommand(ctx *commandContext) *cobra.Command {
	var reviewerID string

	cmd := &cobra.Command{
		Use:   "skip <response-id>",
		Short: "Return a claimed response to the pool without a verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				if _, err := client.Skip(cmd.Context(), api.SkipRequest{
					ResponseID: args[0],
					ReviewerID: reviewerID,
				}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Response %s returned to the pool\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reviewerID, "reviewer", "", "Reviewer identifier (required)")
	_ = cmd.MarkFlagRequired("reviewer")
	return cmd
}
