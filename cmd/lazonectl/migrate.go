package main

import (
	"github.com/spf13/cobra"

	"github.com/lazone/lazone-api/internal/pkg/database"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Example: `  lazonectl migrate
  lazonectl migrate --status`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer database.ClosePostgres(db)

		if migrateStatus {
			return database.MigrationStatus(db)
		}
		return database.Migrate(db)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show migration status instead of applying")
}
