package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"countryrates/pkg/events"
)

var lastRefreshCmd = &cobra.Command{
	Use:   "last-refresh",
	Short: "Show the most recent refresh event from the Redis stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RedisAddr == "" {
			return errors.New("redisAddr is required (set in config.yaml or REDIS_ADDR)")
		}
		stream, err := events.NewRedisStreamPublisher(events.RedisStreamConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.EventStream,
		})
		if err != nil {
			return err
		}
		defer stream.Close()

		ev, ok, err := stream.Latest(cmd.Context())
		if err != nil {
			return fmt.Errorf("read refresh stream: %w", err)
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "no refresh recorded yet")
			return nil
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(ev)
	},
}
