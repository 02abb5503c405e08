package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"resource-portal-go/internal/repository"
	"resource-portal-go/pkg/database"
)

func newCheckDBCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Check database connectivity and print row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := opts.openDB()
			if err != nil {
				return err
			}
			defer database.Close(db)

			repos := repository.New(db)
			if err := repos.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("database unreachable: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Connected to %s\n\n", cfg.Database.SQL.Driver)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tROWS")
			for _, table := range repository.TableNames() {
				n, err := repos.CountRows(cmd.Context(), table)
				if err != nil {
					fmt.Fprintf(w, "%s\terror: %v\n", table, err)
					continue
				}
				fmt.Fprintf(w, "%s\t%d\n", table, n)
			}
			return w.Flush()
		},
	}
}
