// Package commands implements the pulse CLI.
package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Sector market-cap ingestion and sentiment scoring",
	Long: `Pulse aggregates per-instrument market caps from multiple upstream
providers into sector time series, scores momentum-based sentiment per
sector, and folds the sectors into one composite pulse score.

Examples:
  pulse api
  pulse collect
  pulse collect --date 2026-08-28
  pulse weights set Fintech 12.5
  pulse scheduler
  pulse status`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
