package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/vogtb/gridcalc/packages/spreadsheet"
)

// newLogger builds the slog logger selected by the persistent flags. logs
// go to stderr so they never mix with rendered output.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	levelText, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return nil, fmt.Errorf("failed to get log-json flag: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelText)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelText, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	if jsonLogs {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}

// setupLogging installs the flag-selected logger as the slog default
func setupLogging(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// newSpreadsheet builds an engine from --config, or the defaults. the
// returned func flushes traces and must be called once the engine is done.
func newSpreadsheet(cmd *cobra.Command) (*spreadsheet.Spreadsheet, func(), error) {
	logger := slog.Default()

	cfg := spreadsheet.DefaultConfig()
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		if cfg, err = spreadsheet.LoadConfig(path); err != nil {
			return nil, nil, err
		}
		logger.Debug("loaded config", slog.String("path", path))
	}

	opts := []spreadsheet.Option{spreadsheet.WithLogger(logger)}
	shutdown := func() {}

	traced, err := cmd.Flags().GetBool("trace")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	if traced {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(cmd.ErrOrStderr()), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, nil, fmt.Errorf("create exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		opts = append(opts, spreadsheet.WithTracerProvider(tp))
		shutdown = func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Warn("failed to flush traces", slog.String("error", err.Error()))
			}
		}
	}

	sheet, err := spreadsheet.NewSpreadsheetWithConfig(cfg, opts...)
	if err != nil {
		shutdown()
		return nil, nil, err
	}
	return sheet, shutdown, nil
}

// useColor resolves --color against whether stdout is a terminal
func useColor(cmd *cobra.Command) bool {
	mode, _ := cmd.Flags().GetString("color")
	switch mode {
	case "on":
		return true
	case "off":
		return false
	}
	return !color.NoColor
}
