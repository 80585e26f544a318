package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gaurav-prasanna/constpipe/core"
	"github.com/gaurav-prasanna/constpipe/core/retry"
)

const (
	// DefaultBatchSize is used when the configured batch size is not positive.
	DefaultBatchSize = 100

	// maxSampledErrors bounds Report.Errors.
	maxSampledErrors = 10
)

// Locker serializes index creation across processes.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// Report summarizes a BulkUpsert run.
type Report struct {
	BatchesAttempted   int      `json:"batches_attempted"`
	BatchesSucceeded   int      `json:"batches_succeeded"`
	FailedBatches      []int    `json:"failed_batches,omitempty"` // 1-based
	DocumentsAttempted int      `json:"documents_attempted"`
	DocumentsSucceeded int      `json:"documents_succeeded"`
	DocumentsRejected  int      `json:"documents_rejected"`
	Errors             []string `json:"errors,omitempty"`
}

// NotIndexed returns how many attempted documents did not reach the index.
func (r Report) NotIndexed() int {
	return r.DocumentsAttempted - r.DocumentsSucceeded
}

// Partial reports whether some documents were not indexed.
func (r Report) Partial() bool {
	return r.NotIndexed() > 0
}

func (r *Report) sample(err error) {
	if len(r.Errors) < maxSampledErrors {
		r.Errors = append(r.Errors, err.Error())
	}
}

// Gateway loads documents into an Engine.
type Gateway struct {
	engine Engine
	locker Locker
	retry  retry.Config
	logger *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithLocker guards EnsureIndex with a cross-process lock.
func WithLocker(l Locker) GatewayOption {
	return func(g *Gateway) { g.locker = l }
}

// WithRetry sets the per-batch retry policy.
func WithRetry(cfg retry.Config) GatewayOption {
	return func(g *Gateway) { g.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway creates a Gateway over engine.
func NewGateway(engine Engine, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		engine: engine,
		retry:  retry.DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Engine returns the underlying engine.
func (g *Gateway) Engine() Engine {
	return g.engine
}

// EnsureIndex makes sure the index exists. A missing index is created; an
// AlreadyExists error on creation means a concurrent run won the race and is
// not an error. Any other failure is returned and should abort ingestion.
func (g *Gateway) EnsureIndex(ctx context.Context, name string, schema Schema) error {
	if g.locker != nil {
		unlock, err := g.locker.Lock(ctx)
		if err != nil {
			return fmt.Errorf("locking index %s: %w", name, err)
		}
		defer func() {
			if err := unlock(); err != nil {
				g.logger.Warn("index_unlock_failed", slog.String("index", name), slog.String("error", err.Error()))
			}
		}()
	}

	existing, err := g.engine.RetrieveIndex(ctx, name)
	if err == nil {
		if existing != nil && !existing.Compatible(schema) {
			g.logger.Warn("index_schema_mismatch", slog.String("index", name))
		}
		return nil
	}
	if KindOf(err) != KindNotFound {
		return fmt.Errorf("retrieving index %s: %w", name, err)
	}

	schema.Name = name
	if err := g.engine.CreateIndex(ctx, schema); err != nil {
		if KindOf(err) == KindAlreadyExists {
			g.logger.Info("index_created_concurrently", slog.String("index", name))
			return nil
		}
		return fmt.Errorf("creating index %s: %w", name, err)
	}
	g.logger.Info("index_created", slog.String("index", name), slog.Int("fields", len(schema.Fields)))
	return nil
}

// GetSchema returns the stored schema of an index. Errors are returned
// unchanged, so it doubles as a liveness probe.
func (g *Gateway) GetSchema(ctx context.Context, name string) (*Schema, error) {
	return g.engine.RetrieveIndex(ctx, name)
}

// BulkUpsert sends docs in order, in batches of batchSize, one engine call
// per batch. A batch that still fails after its retries is logged and
// skipped; later batches are still sent. It never returns an error: the
// Report says what was indexed.
func (g *Gateway) BulkUpsert(ctx context.Context, name string, docs []core.IndexedDocument, batchSize int) Report {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	opts := DefaultUpsertOptions(batchSize)

	var report Report
	loggedRejection := false
	for start, n := 0, 1; start < len(docs); start, n = start+batchSize, n+1 {
		end := min(start+batchSize, len(docs))
		batch := docs[start:end]
		records := make([]Record, len(batch))
		for i, d := range batch {
			records[i] = ToRecord(d)
		}

		report.BatchesAttempted++
		report.DocumentsAttempted += len(batch)

		var results []DocResult
		err := retry.Do(ctx, g.retry, func(attempt int) error {
			if attempt > 0 {
				g.logger.Warn("batch_retry", slog.Int("batch", n), slog.Int("attempt", attempt))
			}
			var err error
			results, err = g.engine.UpsertBatch(ctx, name, records, opts)
			if err != nil && !isTransient(err) {
				return retry.Permanent(err)
			}
			return err
		})
		if err != nil {
			report.FailedBatches = append(report.FailedBatches, n)
			report.sample(fmt.Errorf("batch %d: %w", n, err))
			g.logger.Error("batch_failed",
				slog.Int("batch", n),
				slog.Int("documents", len(batch)),
				slog.String("first_id", batch[0].ID),
				slog.String("error", err.Error()))
			continue
		}

		report.BatchesSucceeded++
		for _, r := range results {
			if r.OK {
				report.DocumentsSucceeded++
				continue
			}
			report.DocumentsRejected++
			if r.Err != nil {
				report.sample(fmt.Errorf("document %s: %w", r.ID, r.Err))
			}
			if !loggedRejection {
				loggedRejection = true
				g.logger.Warn("document_rejected",
					slog.Int("batch", n),
					slog.String("id", r.ID),
					slog.Any("error", r.Err))
			}
		}
		g.logger.Debug("batch_indexed", slog.Int("batch", n), slog.Int("documents", len(batch)))
	}

	g.logger.Info("bulk_upsert_completed",
		slog.String("index", name),
		slog.Int("batches", report.BatchesAttempted),
		slog.Int("failed_batches", len(report.FailedBatches)),
		slog.Int("documents_indexed", report.DocumentsSucceeded),
		slog.Int("documents_rejected", report.DocumentsRejected))
	return report
}

// isTransient reports whether a batch error is worth retrying.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch KindOf(err) {
	case KindNotFound, KindSchema:
		return false
	}
	return true
}
