package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"resource-portal-go/internal/repository"
	"resource-portal-go/pkg/database"
)

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed the default tags",
		Long: `Auto-migrate every table and insert the default tag catalog.
Running it again is safe: existing tags are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := opts.openDB()
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := repository.Migrate(cmd.Context(), db); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%d tables)\n", len(repository.TableNames()))
			return nil
		},
	}
}
