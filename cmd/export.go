// Export command: renders the documents instead of indexing them.
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gaurav-prasanna/constpipe/core"
	"github.com/gaurav-prasanna/constpipe/core/chunk"
	"github.com/gaurav-prasanna/constpipe/core/output"
	"github.com/gaurav-prasanna/constpipe/core/pipeline"
	"github.com/gaurav-prasanna/constpipe/core/render"
	"github.com/gaurav-prasanna/constpipe/core/ui"
	"github.com/spf13/cobra"
)

// Export formats.
const (
	formatMarkdown       = "markdown"
	formatJSON           = "json"
	formatPDF            = "pdf"
	formatMarkdownSource = "markdown-source"
)

var (
	flagFormat    string
	flagOutputDir string
	flagStorage   string
)

var exportCmd = &cobra.Command{
	Use:   "export [source]",
	Short: "Render the classified documents as Markdown, JSON or PDF",
	Long: `Export runs the same fetch, classification and transformation as ingest and
renders the documents instead of indexing them. markdown-source writes the
html-to-markdown snapshot of the source document as fetched.

Files are written to export.dir, or to S3 with --storage s3.

Examples:
  constpipe export --format markdown
  constpipe export ./constituicao.htm --format json --output-dir ./out
  constpipe export --format pdf --storage s3`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&flagFormat, "format", formatMarkdown, "Output format: markdown, json, pdf, markdown-source")
	exportCmd.Flags().StringVar(&flagOutputDir, "output-dir", "", "Output directory (default from config)")
	exportCmd.Flags().StringVar(&flagStorage, "storage", "", "Storage backend: local or s3 (default from config)")
	exportCmd.Flags().BoolVar(&flagChunked, "chunked", false, "Stream the document in tag-safe chunks")
	exportCmd.Flags().BoolVar(&flagCache, "cache", false, "Serve the source from the document cache when fresh")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if flagOutputDir != "" {
		cfg.Export.Dir = flagOutputDir
	}
	if flagStorage != "" {
		cfg.Export.Storage = flagStorage
	}
	if flagCache {
		cfg.Source.Cache.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	format := strings.ToLower(flagFormat)
	var renderer core.Renderer
	if format != formatMarkdownSource {
		var err error
		if renderer, err = selectRenderer(format); err != nil {
			return err
		}
	}

	source, err := sourceArg(args)
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, source, nil, logger)
	if err != nil {
		return err
	}
	if p.Storage, err = newStorage(ctx, cfg); err != nil {
		return err
	}
	printer := ui.New(os.Stdout)

	if format == formatMarkdownSource {
		loc, err := p.Snapshot(ctx, source)
		if err != nil {
			return err
		}
		printer.Success("Written: %s", loc)
		return nil
	}

	res, err := p.Documents(ctx, pipeline.Options{
		Source:  source,
		Chunked: flagChunked || cfg.Chunk.Enabled,
		Chunk: chunk.Options{
			Size:          cfg.Chunk.Size,
			MemoryCeiling: cfg.MemoryCeiling(),
			Logger:        logger,
		},
	})
	if err != nil {
		return err
	}

	data, err := renderer.Render(res.Documents, core.ExportMetadata{
		Source:    source,
		Title:     res.Title,
		Documents: len(res.Documents),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	loc, err := p.Storage.Put(ctx, output.Filename(source, renderer.Extension()), data)
	if err != nil {
		return err
	}
	printer.Success("Written: %s (%d documents)", loc, len(res.Documents))
	return nil
}

// selectRenderer creates the Renderer for format.
func selectRenderer(format string) (core.Renderer, error) {
	switch format {
	case formatMarkdown:
		return render.NewMarkdownRenderer(), nil
	case formatJSON:
		return render.NewJSONRenderer(), nil
	case formatPDF:
		return render.NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown format %q: use markdown, json, pdf or markdown-source", format)
	}
}
