package main

import (
	"go-pages-app/internal/data"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply all up migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if err := data.ApplyMigrations(cfg.DB); err != nil {
			return err
		}
		log.Info("Migrations applied successfully.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
