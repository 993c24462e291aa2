// Package cmd — build command.
// This is the main command that orchestrates the pipeline:
// scan → normalize → images → extract → minify → size → assemble → write.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/sheetpipe/config"
	"github.com/gaurav-prasanna/sheetpipe/core"
	"github.com/gaurav-prasanna/sheetpipe/core/assets"
	"github.com/gaurav-prasanna/sheetpipe/core/output"
	"github.com/gaurav-prasanna/sheetpipe/core/pipeline"
	"github.com/gaurav-prasanna/sheetpipe/core/publish"
	"github.com/gaurav-prasanna/sheetpipe/core/render"
	"github.com/gaurav-prasanna/sheetpipe/core/scan"
)

var (
	flagOutputDir string
	flagPreviews  []string
	flagLimit     int
	flagPublish   bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build import records from converted HTML folders",
	Long: `Build reads every {index}_{name} folder of the HTML directory, normalizes the
markup, resolves images against the configured asset store and writes
output-{index}.csv / .html per document plus output.csv for all documents.

Examples:
  sheetpipe build
  sheetpipe build --html-dir ./output_html --output-dir ./out --preview markdown --preview pdf
  sheetpipe build --publish`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := runContext(cmd.Context())
		defer cancel()
		return runBuild(ctx)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addBuildFlags(buildCmd)
	buildCmd.Flags().StringVar(&flagHTMLDir, "html-dir", "", "Folder with converter output (default: input.html_dir)")
}

func addBuildFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagOutputDir, "output-dir", "", "Output folder, cleared before writing (default: output.dir)")
	c.Flags().StringSliceVar(&flagPreviews, "preview", nil, "Preview formats per document: markdown, json, pdf")
	c.Flags().IntVar(&flagLimit, "limit", 0, "Per-record character limit (default: records.field_size_limit)")
	c.Flags().BoolVar(&flagPublish, "publish", false, "Also publish the aggregate records (publish.endpoint)")
}

func applyBuildFlags() {
	if flagHTMLDir != "" {
		cfg.Input.HTMLDir = flagHTMLDir
	}
	if flagOutputDir != "" {
		cfg.Output.Dir = flagOutputDir
	}
	if len(flagPreviews) > 0 {
		cfg.Output.Previews = flagPreviews
	}
	if flagLimit > 0 {
		cfg.Records.FieldSizeLimit = flagLimit
	}
	if flagPublish {
		cfg.Publish.Enabled = true
	}
}

func runBuild(ctx context.Context) error {
	applyBuildFlags()
	if err := validateConfig(); err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg.Assets)
	if err != nil {
		return err
	}
	defer closeStore()

	var renderers []core.Renderer
	for _, name := range cfg.Output.Previews {
		r, err := render.ByName(name)
		if err != nil {
			return err
		}
		renderers = append(renderers, r)
	}
	writer, err := output.New(output.Config{Dir: cfg.Output.Dir, Renderers: renderers, Logger: logger})
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	bar := newProgress(cfg.Input.HTMLDir)
	p := pipeline.New(pipeline.Config{
		HTMLDir:         cfg.Input.HTMLDir,
		SizeLimit:       cfg.Records.FieldSizeLimit,
		AssetBaseURL:    cfg.Assets.BaseURL,
		Store:           store,
		UploadLimiter:   rate.NewLimiter(rate.Limit(cfg.Assets.Rate), 1),
		StripAttributes: cfg.Normalize.StripAttributes,
		StripElements:   cfg.Normalize.StripElements,
		Fields:          cfg.Records.Fields,
		SlugPrefix:      cfg.Records.SlugPrefix,
		OnDocument: func(core.Document, error) {
			if bar != nil {
				_ = bar.Add(1)
			}
		},
		Logger: logger,
	})

	result, err := p.Run(ctx)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	if err := writer.Write(ctx, result); err != nil {
		return err
	}
	printSummary(result)

	if cfg.Publish.Enabled {
		pub := publish.New(publish.Config{
			Endpoint:  cfg.Publish.Endpoint,
			Token:     cfg.Publish.Token,
			BatchSize: cfg.Publish.BatchSize,
			Limiter:   rate.NewLimiter(rate.Limit(cfg.Publish.Rate), 1),
			Logger:    logger,
		})
		report, err := pub.Publish(ctx, result.RunID, result.All)
		if report != nil {
			status("Published %d records in %d batches (%d failed)", len(report.Created), report.Batches, report.Failed)
		}
		if err != nil {
			return fmt.Errorf("publishing: %w", err)
		}
	}
	return nil
}

// openStore builds the configured asset backend. The returned func
// releases it.
func openStore(ctx context.Context, a config.Assets) (core.AssetStore, func(), error) {
	noop := func() {}
	switch a.Backend {
	case config.BackendDir:
		s, err := assets.NewDirStore(a.Dir)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case config.BackendHTTP:
		return assets.NewHTTPStore(a.Endpoint, a.Token, nil), noop, nil
	case config.BackendGCS:
		s, client, err := assets.OpenGCSStore(ctx, a.Bucket, a.Prefix)
		if err != nil {
			return nil, noop, err
		}
		return s, func() {
			if err := client.Close(); err != nil {
				logger.Warn("closing storage client", "error", err)
			}
		}, nil
	default:
		return nil, noop, nil
	}
}

func newProgress(htmlDir string) *progressbar.ProgressBar {
	if flagQuiet {
		return nil
	}
	docs, err := scan.New(slog.New(slog.NewTextHandler(io.Discard, nil))).Scan(htmlDir)
	if err != nil || len(docs) == 0 {
		return nil
	}
	return progressbar.NewOptions(len(docs),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.BlueString("Building records")),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func printSummary(result *core.Result) {
	perDoc := 0
	oversized := 0
	for _, g := range result.PerDocument {
		perDoc += len(g.Records)
		for _, r := range g.Records {
			if r.ExceedsLimit {
				oversized++
			}
		}
	}
	reused := 0
	unresolved := 0
	for _, img := range result.Images {
		switch {
		case img.Reused:
			reused++
		case !img.Resolved():
			unresolved++
		}
	}

	status("%s Run %s", color.GreenString("✓"), result.RunID)
	status("  documents: %d built, %d skipped", len(result.PerDocument), len(result.Skipped))
	status("  records:   %d per-document, %d in %s", perDoc, len(result.All), output.AggregateFile)
	if oversized > 0 {
		status("  %s %d records exceed the size limit and are only in per-document files", color.YellowString("!"), oversized)
	}
	status("  images:    %d total, %d reused, %d uploaded, %d unresolved", len(result.Images), reused, result.Uploads, unresolved)
	for _, s := range result.Skipped {
		status("  %s %s: %s", color.RedString("✗"), s.Document.Name, s.Reason)
	}
	status("Written to %s", cfg.Output.Dir)
}
