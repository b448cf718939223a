package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"opine/internal/api"
	"opine/internal/daemonctl"
	"opine/internal/logging"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var surveyFilter, componentFilter string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *daemonctl.Client) error {
				query := daemonctl.LogQuery{
					Limit:     lines,
					Tail:      true,
					Survey:    surveyFilter,
					Component: componentFilter,
				}
				if query.Limit <= 0 {
					query.Limit = 200
				}

				printed := false
				for {
					resp, err := client.Logs(cmd.Context(), query)
					if err != nil {
						// A follow long-poll that outlives the client timeout is
						// an empty page, not a failure.
						if query.Follow && daemonctl.IsTimeout(err) {
							continue
						}
						return err
					}
					for _, evt := range resp.Events {
						fmt.Fprintln(cmd.OutOrStdout(), formatLogEvent(evt))
						printed = true
					}
					if !follow {
						if !printed {
							fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
						}
						return nil
					}
					select {
					case <-cmd.Context().Done():
						return nil
					default:
					}
					query.Since = resp.Next
					query.Limit = 200
					query.Tail = false
					query.Follow = true
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of recent entries to show")
	cmd.Flags().StringVar(&surveyFilter, "survey", "", "Only show entries for one survey")
	cmd.Flags().StringVar(&componentFilter, "component", "", "Only show entries from one component")
	return cmd
}

func formatLogEvent(evt api.LogEvent) string {
	ts := evt.Timestamp.Format("2006-01-02 15:04:05")
	level := strings.ToUpper(strings.TrimSpace(evt.Level))
	if level == "" {
		level = "INFO"
	}
	parts := []string{ts, level}
	if component := strings.TrimSpace(evt.Component); component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", component))
	}
	line := strings.Join(parts, " ")
	if subject := logging.FormatSubject(evt.SurveyID, evt.ResponseID); subject != "" {
		line += " " + subject
	}
	if message := strings.TrimSpace(evt.Message); message != "" {
		line += " – " + message
	}
	if len(evt.Details) == 0 {
		return line
	}
	builder := strings.Builder{}
	builder.WriteString(line)
	for _, detail := range evt.Details {
		if strings.TrimSpace(detail.Label) == "" || strings.TrimSpace(detail.Value) == "" {
			continue
		}
		builder.WriteString("\n    - ")
		builder.WriteString(detail.Label)
		builder.WriteString(": ")
		builder.WriteString(detail.Value)
	}
	return builder.String()
}
