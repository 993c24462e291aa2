// Package cmd — convert command.
// Runs LibreOffice over the source folder, writing one {index}_{name}
// HTML folder per document into the HTML directory.
package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/sheetpipe/core/convert"
)

var (
	flagSourceDir string
	flagHTMLDir   string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert source documents to HTML folders",
	Long: `Convert clears the HTML directory and renders every spreadsheet or document
of the source folder with soffice --headless --convert-to html.

Examples:
  sheetpipe convert
  sheetpipe convert --source ./excel_files --html-dir ./output_html`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := runContext(cmd.Context())
		defer cancel()
		return runConvert(ctx)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	addConvertFlags(convertCmd)
}

func addConvertFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagSourceDir, "source", "", "Folder with source documents (default: input.source_dir)")
	c.Flags().StringVar(&flagHTMLDir, "html-dir", "", "Folder for converter output (default: input.html_dir)")
}

func applyConvertFlags() {
	if flagSourceDir != "" {
		cfg.Input.SourceDir = flagSourceDir
	}
	if flagHTMLDir != "" {
		cfg.Input.HTMLDir = flagHTMLDir
	}
}

func runConvert(ctx context.Context) error {
	applyConvertFlags()
	if err := validateConfig(); err != nil {
		return err
	}

	batch := convert.NewBatch(convert.Config{
		Converter:  convert.Soffice{Binary: cfg.Converter.Binary},
		Extensions: cfg.Converter.Extensions,
		Logger:     logger,
	})

	status("Converting documents from %s...", cfg.Input.SourceDir)
	report, err := batch.Run(ctx, cfg.Input.SourceDir, cfg.Input.HTMLDir)
	if err != nil {
		return err
	}

	for _, name := range report.Converted {
		status("  %s %s", color.GreenString("✓"), name)
	}
	failed := make([]string, 0, len(report.Failed))
	for name := range report.Failed {
		failed = append(failed, name)
	}
	sort.Strings(failed)
	for _, name := range failed {
		status("  %s %s: %v", color.RedString("✗"), name, report.Failed[name])
	}

	if len(report.Converted) == 0 {
		return fmt.Errorf("no document could be converted (%d failed)", len(report.Failed))
	}
	status("Converted %d documents into %s", len(report.Converted), cfg.Input.HTMLDir)
	return nil
}
