package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opshub/opsvault/pkg/configs"
	"github.com/opshub/opsvault/pkg/internal/model"
	"github.com/opshub/opsvault/pkg/internal/storage/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "run database schema migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfigIfNeeded(); err != nil {
			return fmt.Errorf("init config: %w", err)
		}

		dbc, err := db.New(cmd.Context(), &configs.GetConfig().DB)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}

		if err := dbc.GetDB().AutoMigrate(model.AllModels()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "migration completed")

		return nil
	},
}

// registerMigrateCommand 注册迁移命令.
func registerMigrateCommand() {
	rootCmd.AddCommand(migrateCmd)
}
