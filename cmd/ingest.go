// Ingest command: fetch → extract → classify → transform → index.
package cmd

import (
	"fmt"
	"os"

	"github.com/gaurav-prasanna/constpipe/core"
	"github.com/gaurav-prasanna/constpipe/core/chunk"
	"github.com/gaurav-prasanna/constpipe/core/index"
	"github.com/gaurav-prasanna/constpipe/core/pipeline"
	"github.com/gaurav-prasanna/constpipe/core/ui"
	"github.com/spf13/cobra"
)

// Flag variables.
var (
	flagIndex     string
	flagBatchSize int
	flagChunked   bool
	flagChunkSize int
	flagCache     bool
	flagSnapshot  bool
	flagDryRun    bool
	flagStrict    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [source]",
	Short: "Load the constitution into the search index",
	Long: `Ingest fetches the constitution (a URL, a file:// URL or a local path; the
configured source.url when omitted), classifies and transforms every block and
upserts the resulting documents into the index in batches.

A fetch or schema failure aborts the run. Failed batches and rejected
documents are reported; with --strict they make the command exit non-zero.

Examples:
  constpipe ingest
  constpipe ingest ./constituicao.htm --index cf1988 --batch-size 200
  constpipe ingest --chunked --chunk-size 131072 --snapshot
  constpipe ingest --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&flagIndex, "index", "", "Index name (default from config)")
	ingestCmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "Documents per upsert call (default from config)")
	ingestCmd.Flags().BoolVar(&flagChunked, "chunked", false, "Stream the document in tag-safe chunks")
	ingestCmd.Flags().IntVar(&flagChunkSize, "chunk-size", 0, "Chunk size in bytes (default from config)")
	ingestCmd.Flags().BoolVar(&flagCache, "cache", false, "Serve the source from the document cache when fresh")
	ingestCmd.Flags().BoolVar(&flagSnapshot, "snapshot", false, "Also store a Markdown snapshot of the source")
	ingestCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Classify and transform only; do not touch the index")
	ingestCmd.Flags().BoolVar(&flagStrict, "strict", false, "Exit non-zero when any document was not indexed")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	applyIngestFlags()

	source, err := sourceArg(args)
	if err != nil {
		return err
	}

	var gw *index.Gateway
	if !flagDryRun {
		engine, opts, err := openEngine(ctx, cfg, logger)
		if err != nil {
			return core.NewStageError(core.StageSchema, err)
		}
		defer engine.Close()
		gw = index.NewGateway(engine, opts...)
	}

	p, err := newPipeline(cfg, source, gw, logger)
	if err != nil {
		return err
	}
	if flagSnapshot {
		if p.Storage, err = newStorage(ctx, cfg); err != nil {
			return err
		}
	}

	printer := ui.New(os.Stdout)
	report, err := p.Run(ctx, pipeline.Options{
		Source:    source,
		IndexName: cfg.Index.Name,
		BatchSize: cfg.Index.BatchSize,
		Chunked:   cfg.Chunk.Enabled,
		Chunk: chunk.Options{
			Size:          cfg.Chunk.Size,
			MemoryCeiling: cfg.MemoryCeiling(),
			Progress:      printer.Progress,
			Logger:        logger,
		},
		DryRun:   flagDryRun,
		Snapshot: flagSnapshot,
	})
	if err != nil {
		return err
	}

	printer.Report(report)
	if flagStrict && report.Index.Partial() {
		return fmt.Errorf("%d documents were not indexed", report.Index.NotIndexed())
	}
	return nil
}

// applyIngestFlags overrides configuration values with explicitly set flags.
func applyIngestFlags() {
	if flagIndex != "" {
		cfg.Index.Name = flagIndex
	}
	if flagBatchSize > 0 {
		cfg.Index.BatchSize = flagBatchSize
	}
	if flagChunked {
		cfg.Chunk.Enabled = true
	}
	if flagChunkSize > 0 {
		cfg.Chunk.Size = flagChunkSize
	}
	if flagCache {
		cfg.Source.Cache.Enabled = true
	}
}
