package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"resource-portal-go/internal/repository"
	"resource-portal-go/internal/service"
	"resource-portal-go/pkg/database"
	"resource-portal-go/pkg/token"
)

func newCreateAdminCmd(opts *options) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: `Create an admin user. The email must not be registered yet.

Examples:
  portalctl create-admin --email admin@college.edu --password s3cret! --name "Portal Admin"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := opts.openDB()
			if err != nil {
				return err
			}
			defer database.Close(db)

			// Account creation touches neither the token blacklist nor signing.
			jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
			users := service.NewUserService(repository.New(db).Users, nil, jwtManager)

			admin, err := users.CreateAdmin(cmd.Context(), email, password, name)
			if err != nil {
				return fmt.Errorf("failed to create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", admin.Email, admin.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Admin email address")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (at least 6 characters)")
	cmd.Flags().StringVar(&name, "name", "Administrator", "Admin full name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
