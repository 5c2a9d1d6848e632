package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

// configPath is the explicit --config value; empty means search upward
// from the working directory.
var configPath string

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dbwizard",
		Short: "dbwizard - ask a PostgreSQL database questions in plain language",
		Long: `dbwizard turns natural language questions into bounded, validated
database operations and answers in plain language.

A reasoning engine plans tool calls, the wizard executes them against
PostgreSQL, and the loop repeats until the engine answers or a hard
bound trips. Every session is audited to an append-only log.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to .dbwizard.yaml (default: search upward from the working directory)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newAskCommand())
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newBatchCommand())
	cmd.AddCommand(newSeedCommand())
	cmd.AddCommand(newSessionCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
