package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "holdings",
		Short: "Brokerage statement holdings extractor",
		Long: `Holdings reads the detailed investment-position table of a brokerage
statement (PDF or a JSON word dump) and produces structured records.

It can:
  - Extract positions to JSON, CSV and XLSX
  - Validate the extraction against known statement figures
  - Persist statements to PostgreSQL or SQLite
  - Serve an HTTP API and watch an inbox directory`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(wordsCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())
	return rootCmd
}
