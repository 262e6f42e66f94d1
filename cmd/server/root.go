package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"signal_relay/internal/config"
	"signal_relay/internal/telemetry"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay charting alerts to the Capital.com trading API",
	Long: `Relay receives webhook alerts describing a trade (action, symbol, size,
optional take-profit and stop-loss) and places a market order with the
brokerage on the caller's behalf.

Configuration is read from built-in defaults, an optional YAML file
(--config or RELAY_CONFIG) and the environment, in that order. A .env file in
the working directory is loaded first.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (default $RELAY_CONFIG)")
}

// loadConfig loads configuration and installs the default logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	path := configPath
	if path == "" {
		path = config.ConfigPathFromEnv()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger := telemetry.Init(telemetry.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, logger, nil
}
