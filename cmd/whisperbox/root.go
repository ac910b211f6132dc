// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/whisperbox/whisperbox/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Whisperbox CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whisperbox",
		Short: "Whisperbox - anonymous messages",
		Long: `Whisperbox lets people receive anonymous messages. Users sign up with
an emailed verification code, sign in, and read their inbox.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/whisperbox/config.yaml if present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// resolveConfigFile returns the --config path, or the XDG default when the
// flag is unset. An empty result means no file.
func resolveConfigFile() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return xdg.ConfigFile()
}
