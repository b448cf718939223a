package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"opine/internal/api"
	"opine/internal/respstore"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check response store health (schema, integrity, counts)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(store respstore.Store) error {
				svc := api.NewQueueService(store)
				diagnostics, err := svc.Diagnostics(cmd.Context())
				if err != nil {
					return err
				}
				health, err := svc.Health(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, struct {
						Database *api.DatabaseDiagnostics `json:"database,omitempty"`
						Health   api.HealthReport         `json:"health"`
					}{diagnostics, health})
				}

				out := cmd.OutOrStdout()
				if diagnostics == nil {
					fmt.Fprintln(out, "Backend offers no self-inspection; counts only")
				} else {
					fmt.Fprintf(out, "Database path: %s\n", diagnostics.Path)
					fmt.Fprintf(out, "Database exists: %s\n", yesNo(diagnostics.Exists))
					fmt.Fprintf(out, "Readable: %s\n", yesNo(diagnostics.Readable))
					fmt.Fprintf(out, "responses table present: %s\n", yesNo(diagnostics.TableExists))
					if len(diagnostics.MissingColumns) > 0 {
						missing := append([]string(nil), diagnostics.MissingColumns...)
						sort.Strings(missing)
						fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
					} else {
						fmt.Fprintln(out, "Missing columns: none")
					}
					fmt.Fprintf(out, "Integrity check: %s\n", yesNo(diagnostics.IntegrityOK))
					fmt.Fprintf(out, "Total responses: %d\n", diagnostics.TotalResponses)
					if diagnostics.Error != "" {
						fmt.Fprintf(out, "Error: %s\n", diagnostics.Error)
					}
				}

				fmt.Fprintf(out, "Awaiting review: %d\n", health.AwaitingReview)
				fmt.Fprintf(out, "Under review: %d\n", health.Leased)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}
