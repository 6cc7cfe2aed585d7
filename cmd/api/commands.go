package main

import (
	"fmt"

	"storefront/internal/database"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateStatusCmd = &cobra.Command{
	Use:   "migrate-status",
	Short: "Print which migrations have been applied",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		defer db.Close()

		return database.GetMigrationStatus(db.DB(), migrationsDir)
	},
}

var promoteAdminCmd = &cobra.Command{
	Use:   "promote-admin <email>",
	Short: "Grant the admin role to a registered account",
	Long: `Grant the admin role to a registered account.

The account must already exist. The new role takes effect on the user's next
login or token refresh.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		defer db.Close()

		users := service.NewUserService(
			repository.NewUserRepository(db.DB()),
			repository.NewRefreshTokenRepository(db.DB()),
			cfg.JWT,
		)
		if err := users.PromoteToAdmin(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("promote %s: %w", args[0], err)
		}

		log.Info("User promoted to admin", zap.String("email", args[0]))
		return nil
	},
}
