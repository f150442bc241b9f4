package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/veridoc/veridoc/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "veridoc",
	Short: "Documentation validation orchestrator",
	Long: `Veridoc validates documentation against per-family truth data.

A validation run detects plugin references with windowed fuzzy matching,
routes validation types to heuristic validators, optionally sends the
findings through a semantic review, and gates everything into one result.

Workflows are checkpointed and can be paused, resumed, and retried.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads configuration, honoring the --config override.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (overrides discovery)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(checkTruthCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
