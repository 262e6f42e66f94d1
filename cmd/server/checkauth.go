package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"signal_relay/internal/auth"
	"signal_relay/internal/broker"
	"signal_relay/internal/broker/capital"
	apperrors "signal_relay/internal/errors"
	"signal_relay/internal/telemetry"
)

var checkAuthCmd = &cobra.Command{
	Use:   "check-auth",
	Short: "Log in to the brokerage once and report the outcome",
	Long: `Perform a single brokerage login with the configured credentials.
Tokens are never printed.

Example:
  CAPITAL_ENV=demo relay check-auth`,
	RunE: runCheckAuth,
}

func init() {
	rootCmd.AddCommand(checkAuthCmd)
}

func runCheckAuth(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	creds, err := broker.NewCredentials(cfg.Broker.Identifier, cfg.Broker.Password, cfg.Broker.APIKey)
	if err != nil {
		return err
	}
	sessions := auth.NewSessionManager(capital.NewClient(cfg.Broker.BaseURL, creds))

	ctx, cancel := context.WithTimeout(telemetry.WithLogger(cmd.Context(), logger), auth.LoginTimeout+time.Second)
	defer cancel()

	session, err := sessions.Session(ctx)
	out := cmd.OutOrStdout()
	if err != nil {
		fmt.Fprintf(out, "authentication failed (%s): %v\n", apperrors.Category(err), err)
		return err
	}

	fmt.Fprintf(out, "authentication succeeded against %s\n", cfg.Broker.BaseURL)
	fmt.Fprintf(out, "session valid until %s\n", session.ExpiresAt.Format(time.RFC3339))
	return nil
}
