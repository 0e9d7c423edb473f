package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"countryrates/pkg/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		defer s.Close()
		slog.Info("database schema is up to date")
		return nil
	},
}
