// Package cmd implements the CLI commands for SheetPipe using Cobra.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/sheetpipe/config"
	"github.com/gaurav-prasanna/sheetpipe/core"
)

// Persistent flag variables.
var (
	flagConfig  string
	flagVerbose bool
	flagLogJSON bool
	flagQuiet   bool
	flagTimeout time.Duration
)

// Loaded in PersistentPreRunE.
var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sheetpipe",
	Short: "SheetPipe turns office documents into knowledge-base import records",
	Long: `SheetPipe converts spreadsheets and documents to HTML with LibreOffice,
normalizes the markup, resolves embedded images against an asset store and
writes size-checked records for bulk import.

Usage:
  sheetpipe convert            # source documents -> HTML folders
  sheetpipe build              # HTML folders -> CSV records
  sheetpipe run                # both`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default: sheetpipe.yaml if present)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")
	pf.BoolVar(&flagLogJSON, "log-json", false, "Log as JSON")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "No progress bar or status lines")
	pf.DurationVar(&flagTimeout, "timeout", 0, "Abort the run after this duration (0 = no limit)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, core.ErrNoInput) {
			fmt.Fprintln(os.Stderr, color.RedString("✗ Nothing to process: %v", err))
			fmt.Fprintln(os.Stderr, "  Run `sheetpipe convert` first or point --html-dir at converter output.")
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, color.RedString("✗ %v", err))
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	logger = newLogger(os.Stderr, flagVerbose, flagLogJSON)
	slog.SetDefault(logger)

	loaded, err := config.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func newLogger(w io.Writer, verbose, asJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// validateConfig reports every config problem at once.
func validateConfig() error {
	problems := cfg.Validate()
	if len(problems) == 0 {
		return nil
	}
	errs := make([]error, 0, len(problems))
	for _, p := range problems {
		errs = append(errs, p)
	}
	return fmt.Errorf("invalid configuration:\n%w", errors.Join(errs...))
}

// runContext applies --timeout.
func runContext(parent context.Context) (context.Context, context.CancelFunc) {
	if flagTimeout > 0 {
		return context.WithTimeout(parent, flagTimeout)
	}
	return context.WithCancel(parent)
}

// status prints a human status line unless --quiet.
func status(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}
