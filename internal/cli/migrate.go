package cli

import (
	"fmt"

	"github.com/opticshop/optics/pkg/database"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and seed roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := bootstrap(); err != nil {
				return err
			}
			return runMigrations()
		},
	}
}

func runMigrations() error {
	if err := database.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.GetLogger().Info("Database migrated")
	return nil
}
