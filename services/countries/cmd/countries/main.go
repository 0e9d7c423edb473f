package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"countryrates/internal/util"
	"countryrates/services/countries/internal/config"
)

var (
	configPath string
	cfg        config.FileConfig
)

var rootCmd = &cobra.Command{
	Use:           "countries <command>",
	Short:         "Country currency and exchange rate API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations["config"] == "none" {
			return nil
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		util.InitLogger(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $COUNTRIES_CONFIG or config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(issueTokenCmd)
	rootCmd.AddCommand(revokeTokenCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(lastRefreshCmd)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "err", err)
	}
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}
