// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ManuGH/kioskd/internal/config"
	"github.com/ManuGH/kioskd/internal/daemon"
	kioskdlog "github.com/ManuGH/kioskd/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kioskd",
		Short:         "Kiosk display session daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to config file (YAML)")

	root.AddCommand(newServeCmd(), newVersionCmd(), newConfigCmd(), newHealthcheckCmd())
	return root
}

func loadConfig(cmd *cobra.Command) (config.AppConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.NewLoader(path, version).Load()
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the kiosk daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			kioskdlog.Configure(kioskdlog.Config{
				Level:   cfg.LogLevel,
				Service: "kioskd",
				Version: version,
			})
			logger := kioskdlog.WithComponent("daemon")
			logger.Info().
				Str("commit", commit).
				Str(kioskdlog.FieldDeviceID, cfg.DeviceID).
				Msg("starting kioskd")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := daemon.Serve(ctx, cfg); err != nil {
				logger.Error().Err(err).Msg("daemon exited with error")
				return err
			}
			logger.Info().Msg("daemon stopped")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	}
}
