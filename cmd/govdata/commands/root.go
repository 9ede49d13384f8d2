// Package commands holds the govdata CLI.
package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "govdata",
	Short: "Regional data enrichment and knowledge corpus pipeline",
	Long: `govdata enriches US state profiles with government data and
generates a knowledge corpus for a downstream assistant.

The pipeline has three stages:
  enrichment   - fetch Census, BLS, and FRED data and build profiles
  aggregation  - roll profiles up into region-group statistics
  learning     - mine correlation patterns and generate the corpus

Examples:
  go run ./cmd/govdata pipeline run
  go run ./cmd/govdata pipeline run --stage aggregation
  go run ./cmd/govdata pipeline run --regions CA,TX,NY
  go run ./cmd/govdata api
  go run ./cmd/govdata scheduler`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
