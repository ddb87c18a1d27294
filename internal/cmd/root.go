package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// verbose is a global flag for verbose output
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "importctl",
	Short: "importctl - AI-assisted tabular data import",
	Long: `importctl drives an import session against an extraction backend:

  1. Select a CSV/TSV or workbook file
  2. Pick a sheet when the workbook has several visible ones
  3. Wait for the asynchronous extraction with live progress
  4. Review and adjust the proposed column mappings
  5. Confirm and write the flattened output as JSON, CSV or XLSX

Backend location and polling cadence come from IMPORTKIT_* environment
variables (a .env file next to the binary is honored).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine; env vars may be set directly.
		_ = godotenv.Load()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(presetsCmd)
}

// newLogger builds the CLI logger; verbose switches on debug and info
// events, otherwise only warnings surface.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
