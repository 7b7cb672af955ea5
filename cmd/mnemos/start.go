// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mnemos-dev/mnemos/internal/config"
	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the mnemos index service",
		Long:  "Load configuration, open the index from persisted state, and start the HTTP server.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("networking.listen_override", cmd.Flags().Lookup("listen"))

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if listen := viper.GetString("networking.listen_override"); listen != "" {
		cfg.Networking.Listen = listen
	}
	if cfg.Provider.APIKey == "" {
		return mnemoserr.New(mnemoserr.CodeConfigValidateInvalidValue,
			"provider.api_key is required (set MNEMOS_PROVIDER_API_KEY)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := WireService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			slog.Error("closing service", "error", err)
		}
	}()

	slog.Info("starting mnemos",
		"listen", cfg.Networking.Listen,
		"model", cfg.Provider.Model,
		"records", svc.Index.Count())

	if err := svc.Server.Start(ctx); err != nil {
		return mnemoserr.Wrapf(err, mnemoserr.CodeServerStartFailure, "running server")
	}
	return nil
}
