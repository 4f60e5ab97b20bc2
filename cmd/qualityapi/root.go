package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "qualityapi",
	Short: "Honey quality document verification and certification service",
	Long: `Qualityapi verifies honey quality assay documents against a product
standard and issues compliance certificates.

Uploaded documents are ingested (layout analysis for scans, native text
extraction otherwise), checked parameter by parameter against the standard
using a zero-shot entailment model with a deterministic rule fallback, and
certified when the overall verdict passes.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
