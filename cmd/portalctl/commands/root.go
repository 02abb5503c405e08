// Package commands holds the portalctl subcommands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"resource-portal-go/internal/config"
	"resource-portal-go/pkg/database"
	"resource-portal-go/pkg/log"
)

// options are the global flags shared by every subcommand.
type options struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the portalctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Maintenance tool for the college resource portal",
		Long: `portalctl works directly against the portal's database and storage.

Commands:
  migrate        - create or update the schema and seed the default tags
  create-admin   - create an administrator account
  clean-orphans  - remove resources whose uploader is gone, and optionally stray stored files
  check-db       - check connectivity and print row counts`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.Init("debug", "console", "")
			}
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "./configs/config.yaml", "Path to the portal config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")

	root.AddCommand(
		newMigrateCmd(opts),
		newCreateAdminCmd(opts),
		newCleanOrphansCmd(opts),
		newCheckDBCmd(opts),
	)
	return root
}

// Execute runs portalctl with the process arguments.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (o *options) openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.OpenSQL(cfg.Database.SQL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, db, nil
}
