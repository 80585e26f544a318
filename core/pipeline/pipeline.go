// Package pipeline runs one ingestion of the constitution:
// fetch → extract → classify → transform → index.
//
// Fetch and schema failures are fatal and returned as core.StageError.
// Everything after the index exists is best effort: unclassifiable blocks are
// dropped, failed batches and rejected documents are counted in the Report.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gaurav-prasanna/constpipe/core"
	"github.com/gaurav-prasanna/constpipe/core/chunk"
	"github.com/gaurav-prasanna/constpipe/core/classify"
	"github.com/gaurav-prasanna/constpipe/core/extract"
	"github.com/gaurav-prasanna/constpipe/core/index"
	"github.com/gaurav-prasanna/constpipe/core/output"
	"github.com/gaurav-prasanna/constpipe/core/render"
	"github.com/gaurav-prasanna/constpipe/core/transform"
	"github.com/google/uuid"
)

// Pipeline holds the collaborators of an ingestion run.
type Pipeline struct {
	Fetcher   core.Fetcher
	Extractor core.BlockExtractor
	// Gateway is required unless every run is a dry run.
	Gateway *index.Gateway
	// Normalizer and Storage are only used for snapshots.
	Normalizer core.Normalizer
	Storage    core.Storage
	Logger     *slog.Logger
	// Now is the clock for IndexedAt and the report; nil means time.Now.
	Now func() time.Time
}

// Options configures one run.
type Options struct {
	Source    string
	IndexName string
	BatchSize int

	// Chunked streams the document through the chunk adapter.
	Chunked bool
	Chunk   chunk.Options

	// DryRun classifies and transforms without touching the index.
	DryRun bool
	// Snapshot stores a Markdown copy of the source through Storage.
	Snapshot bool
}

// Report summarizes a run.
type Report struct {
	RunID      string                   `json:"run_id"`
	Source     string                   `json:"source"`
	Title      string                   `json:"title,omitempty"`
	FromCache  bool                     `json:"from_cache"`
	Bytes      int                      `json:"bytes"`
	Elements   int                      `json:"elements"`
	Documents  int                      `json:"documents"`
	Kinds      map[core.ElementKind]int `json:"kinds"`
	DryRun     bool                     `json:"dry_run"`
	Index      index.Report             `json:"index"`
	Snapshot   string                   `json:"snapshot,omitempty"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Result is the output of the stages shared by ingest and export.
type Result struct {
	Fetch     *core.FetchResult
	Title     string
	Elements  []core.RawElement
	Documents []core.IndexedDocument
}

// Run executes one ingestion. The returned Report is non-nil whenever the
// fetch stage succeeded, even if a later fatal error is returned with it.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	logger := p.logger()
	report := &Report{
		RunID:     uuid.NewString(),
		Source:    opts.Source,
		DryRun:    opts.DryRun,
		StartedAt: p.now(),
	}
	logger = logger.With(slog.String("run_id", report.RunID))
	logger.Info("ingest_started", slog.String("source", opts.Source), slog.String("index", opts.IndexName))

	fetched, err := p.fetch(ctx, opts.Source)
	if err != nil {
		logger.Error("ingest_failed", slog.String("stage", string(core.StageFetch)), slog.String("error", err.Error()))
		return nil, err
	}
	report.FromCache = fetched.FromCache
	report.Bytes = len(fetched.HTML)

	// The index must exist before any document is built.
	schema := index.DefaultSchema(opts.IndexName)
	if !opts.DryRun {
		if p.Gateway == nil {
			return report, core.NewStageError(core.StageSchema, fmt.Errorf("no index gateway configured"))
		}
		if err := p.Gateway.EnsureIndex(ctx, opts.IndexName, schema); err != nil {
			logger.Error("ingest_failed", slog.String("stage", string(core.StageSchema)), slog.String("error", err.Error()))
			return report, core.NewStageError(core.StageSchema, err)
		}
	}

	res, err := p.build(ctx, fetched, opts, logger)
	if err != nil {
		return report, err
	}
	report.Title = res.Title
	report.Elements = len(res.Elements)
	report.Documents = len(res.Documents)
	report.Kinds = render.CountKinds(res.Documents)

	if !opts.DryRun {
		report.Index = p.Gateway.BulkUpsert(ctx, opts.IndexName, res.Documents, opts.BatchSize)
	}

	if opts.Snapshot {
		// A snapshot is a convenience copy; failing to write it never fails the run.
		if loc, err := p.snapshot(ctx, fetched); err != nil {
			logger.Warn("snapshot_failed", slog.String("error", err.Error()))
		} else {
			report.Snapshot = loc
		}
	}

	report.FinishedAt = p.now()
	logger.Info("ingest_completed",
		slog.Int("elements", report.Elements),
		slog.Int("documents", report.Documents),
		slog.Int("not_indexed", report.Index.NotIndexed()),
		slog.Duration("duration", report.Duration()))
	return report, nil
}

// Documents runs fetch, extract, classify and transform without indexing.
// It backs the export command.
func (p *Pipeline) Documents(ctx context.Context, opts Options) (*Result, error) {
	fetched, err := p.fetch(ctx, opts.Source)
	if err != nil {
		return nil, err
	}
	return p.build(ctx, fetched, opts, p.logger())
}

// Snapshot fetches the source and stores its Markdown rendition, returning
// the storage location.
func (p *Pipeline) Snapshot(ctx context.Context, source string) (string, error) {
	fetched, err := p.fetch(ctx, source)
	if err != nil {
		return "", err
	}
	return p.snapshot(ctx, fetched)
}

func (p *Pipeline) fetch(ctx context.Context, source string) (*core.FetchResult, error) {
	if p.Fetcher == nil {
		return nil, core.NewStageError(core.StageFetch, fmt.Errorf("no fetcher configured"))
	}
	res, err := p.Fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, core.NewStageError(core.StageFetch, err)
	}
	return res, nil
}

func (p *Pipeline) build(ctx context.Context, fetched *core.FetchResult, opts Options, logger *slog.Logger) (*Result, error) {
	source := fetched.URL
	if source == "" {
		source = opts.Source
	}
	c := classify.New(source, classify.WithLogger(logger))

	var (
		elements []core.RawElement
		err      error
	)
	if opts.Chunked {
		chunkOpts := opts.Chunk
		if chunkOpts.Logger == nil {
			chunkOpts.Logger = logger
		}
		elements, err = chunk.Stream(ctx, fetched.HTML, chunkOpts, p.Extractor, c)
	} else {
		var blocks []core.Block
		blocks, err = p.Extractor.Blocks(fetched.HTML)
		if err == nil {
			elements = append(c.Feed(blocks), c.Flush()...)
		}
	}
	if err != nil {
		return nil, core.NewStageError(core.StageExtract, err)
	}

	t := transform.New(transform.WithClock(p.now), transform.WithLogger(logger))
	docs := t.Transform(elements)
	logger.Debug("documents_built", slog.Int("elements", len(elements)), slog.Int("documents", len(docs)))

	return &Result{
		Fetch:     fetched,
		Title:     extract.Title(fetched.HTML),
		Elements:  elements,
		Documents: docs,
	}, nil
}

func (p *Pipeline) snapshot(ctx context.Context, fetched *core.FetchResult) (string, error) {
	if p.Normalizer == nil || p.Storage == nil {
		return "", fmt.Errorf("snapshot needs a normalizer and a storage")
	}
	md, err := p.Normalizer.Normalize(fetched.HTML)
	if err != nil {
		return "", fmt.Errorf("normalizing source: %w", err)
	}
	return p.Storage.Put(ctx, output.Filename(fetched.URL, ".source.md"), []byte(md))
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
