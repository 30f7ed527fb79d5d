package main

import (
	"github.com/spf13/cobra"

	"github.com/totegamma/mediadb/internal/infra/database"
)

func newMigrateCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the SQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}

			db, err := openSQL(cmd.Context(), cfg.Store, logger)
			if err != nil {
				return err
			}
			defer closeSQL(db)()

			if err := database.Migrate(db); err != nil {
				return err
			}
			logger.Info("schema migrated", "driver", cfg.Store.Driver)
			return nil
		},
	}
}
