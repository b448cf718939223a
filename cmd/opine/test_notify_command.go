package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"opine/internal/daemonctl"
	"opine/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()

			client, err := daemonctl.NewClient(cfg)
			if err != nil {
				return err
			}
			if client != nil {
				result, notifyErr := client.TestNotify(cmd.Context())
				if notifyErr == nil {
					if result.Message != "" {
						fmt.Fprintln(stdout, result.Message)
					} else if result.Sent {
						fmt.Fprintln(stdout, "Test notification sent")
					} else {
						fmt.Fprintln(stdout, "Notification not sent")
					}
					return nil
				}
				if !daemonctl.IsUnavailable(notifyErr) {
					return notifyErr
				}
			}

			// Daemon down; push straight from this process instead.
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				fmt.Fprintln(stdout, "ntfy topic not configured")
				return nil
			}
			if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(stdout, "Test notification sent")
			return nil
		},
	}
}
