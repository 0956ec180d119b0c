package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/flowgate/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "flowgate",
	Short: "Flowgate - flow control for guarded calls",
	Long: `Flowgate admits or blocks calls to named resources according to QPS,
concurrency and system rules, runs a fallback when a call is blocked, and
reports total/pass/block counts every second.

Rules are loaded from YAML and can be reloaded while running. Guarded calls
are exported as Prometheus metrics and OpenTelemetry spans.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with cli.ExitCode on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
