package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"resource-portal-go/internal/repository"
	"resource-portal-go/internal/service"
	"resource-portal-go/pkg/database"
	"resource-portal-go/pkg/kafka"
	"resource-portal-go/pkg/storage"
)

func newCleanOrphansCmd(opts *options) *cobra.Command {
	var sweepStorage, dryRun bool
	cmd := &cobra.Command{
		Use:   "clean-orphans",
		Short: "Remove resources whose uploader no longer exists",
		Long: `Delete resources (with their ratings, favorites, tags and stored files)
whose uploader account is gone. With --storage, also remove stored objects
under the upload folder that no resource references.

Examples:
  portalctl clean-orphans --dry-run           # list what would be removed
  portalctl clean-orphans --storage           # clean rows and stray objects`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, db, err := opts.openDB()
			if err != nil {
				return err
			}
			defer database.Close(db)

			rdb, err := database.OpenRedis(ctx, cfg.Database.Redis)
			if err != nil {
				return err
			}
			defer rdb.Close()

			store, err := storage.NewMinIOStore(ctx, cfg.MinIO)
			if err != nil {
				return fmt.Errorf("failed to connect to object storage: %w", err)
			}

			var queue service.CleanupQueue = kafka.DiscardQueue{}
			if cfg.Kafka.Enabled {
				producer := kafka.NewProducer(cfg.Kafka)
				defer producer.Close()
				queue = producer
			}

			admin := service.NewAdminService(repository.New(db), store, queue, repository.NewUnreadCountCache(rdb), cfg.MinIO.Folder)
			out := cmd.OutOrStdout()
			verb := "Removed"
			if dryRun {
				verb = "Would remove"
			}

			report, err := admin.CleanOrphanResources(ctx, dryRun)
			if err != nil {
				return fmt.Errorf("failed to clean orphaned resources: %w", err)
			}
			for _, res := range report.Resources {
				fmt.Fprintf(out, "  resource %s  %q  (uploader %s)\n", res.ID, res.Title, res.UploadedBy)
			}
			fmt.Fprintf(out, "%s %d orphaned resources\n", verb, len(report.Resources))

			if !sweepStorage {
				return nil
			}
			report, err = admin.SweepStorage(ctx, dryRun)
			if err != nil {
				return fmt.Errorf("failed to sweep storage: %w", err)
			}
			for _, key := range report.Objects {
				fmt.Fprintf(out, "  object %s\n", key)
			}
			fmt.Fprintf(out, "%s %d unreferenced objects\n", verb, len(report.Objects))
			return nil
		},
	}
	cmd.Flags().BoolVar(&sweepStorage, "storage", false, "Also remove stored objects no resource references")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report without deleting anything")
	return cmd
}
