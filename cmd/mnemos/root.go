// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mnemos-dev/mnemos/internal/config"
)

// NewRootCmd creates the root mnemos command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mnemos",
		Short:         "Mnemos — local semantic-memory index",
		Long:          "Mnemos stores short text records as vectors, answers nearest-neighbor queries over them, groups vectors into clusters, and can be atomically rebuilt from an external authoritative dataset.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initRoot(cmd)
		},
	}

	// Global flags — these map to viper keys via initRoot.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	// Register subcommands
	root.AddCommand(
		newStartCmd(),
		newStatusCmd(),
		newSearchCmd(),
		newRebuildCmd(),
		newVersionCmd(),
	)

	return root
}

// initRoot resolves the config file path and binds global flags so commands
// get the standard precedence (flag > env > file > defaults) from
// config.Load.
func initRoot(cmd *cobra.Command) error {
	v := viper.GetViper()

	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return err
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile == "" {
		// Auto-discover mnemos.yaml; bootstrap a commented default on first
		// run so operators have something to edit.
		if path, err := config.DefaultConfigPath(); err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				cfgFile = path
			} else if bootstrapped := config.BootstrapConfig(); bootstrapped != "" {
				cfgFile = bootstrapped
			}
		}
	}
	v.Set("config_file", cfgFile)

	level := slog.LevelInfo
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return nil
}

// configPath returns the config file path resolved by initRoot.
func configPath() string {
	return viper.GetString("config_file")
}
