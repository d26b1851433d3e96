package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "gridcalc",
	Short:        "Spreadsheet formula engine",
	Long:         `gridcalc applies cell edits to a grid and keeps every dependent formula up to date`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentPreRunE = setupLogging
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(functionsCmd)

	rootCmd.PersistentFlags().String("config", "", "engine config file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("trace", false, "write recalculation spans to stderr")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
