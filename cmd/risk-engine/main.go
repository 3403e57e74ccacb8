// risk-engine serves inspection risk classification and forecasts over gRPC,
// or runs a one-shot analysis of a dataset file.
//
// Usage:
//
//	risk-engine serve [--config=<path>]
//	risk-engine analyze --dataset=<file.json> [--config=<path>] [--no-retrain]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "risk-engine",
	Short: "Diagnostic risk classification and predictive analytics for inspected assets",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (defaults to $RISK_ENGINE_CONFIG)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
