package chunk

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/gaurav-prasanna/constpipe/core"
	"github.com/gaurav-prasanna/constpipe/core/classify"
)

// Options configures a streaming run.
type Options struct {
	Size int // see Chunker.Size

	// MemoryCeiling is the heap size in bytes above which a warning is
	// logged. Zero disables the check.
	MemoryCeiling uint64

	// Progress is called after each chunk with the bytes processed so far and
	// the document size.
	Progress func(done, total int)

	Logger *slog.Logger
}

// Stream extracts and classifies doc chunk by chunk, feeding every chunk into
// the same Classifier so that context, sequence and a pending article carry
// over chunk boundaries. The classifier is flushed at the end.
func Stream(ctx context.Context, doc string, opts Options, extractor core.BlockExtractor, c *classify.Classifier) ([]core.RawElement, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	chunks := Split(doc, opts.Size)
	logger.Debug("stream_started", slog.Int("chunks", len(chunks)), slog.Int("bytes", len(doc)))

	var (
		out    []core.RawElement
		done   int
		warned bool
	)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		blocks, err := extractor.Blocks(chunk)
		if err != nil {
			return out, fmt.Errorf("extracting chunk %d: %w", i+1, err)
		}
		out = append(out, c.Feed(blocks)...)
		done += len(chunk)

		if opts.Progress != nil {
			opts.Progress(done, len(doc))
		}
		if !warned && opts.MemoryCeiling > 0 {
			if heap := heapAlloc(); heap > opts.MemoryCeiling {
				logger.Warn("memory_ceiling_exceeded",
					slog.Int("chunk", i+1),
					slog.Uint64("heap_bytes", heap),
					slog.Uint64("ceiling_bytes", opts.MemoryCeiling))
				warned = true
			}
		}
	}

	return append(out, c.Flush()...), nil
}

func heapAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}
