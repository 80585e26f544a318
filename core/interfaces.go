// Package core defines the pipeline interfaces and data model for constpipe.
// Each stage of the pipeline is a clean, testable interface; the data flows
// one way: fetch → extract → classify → transform → index.
package core

import (
	"context"
	"time"
)

// FetchResult holds the decoded document and response metadata from a fetch.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string
	HTML        string
	FromCache   bool
}

// Fetcher retrieves the raw source document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// Cache stores raw documents keyed by a normalized source URL.
type Cache interface {
	Get(key string) (string, bool)
	Set(key string, text string, ttl time.Duration) error
}

// BlockExtractor turns a document (or a tag-safe fragment of one) into
// ordered text blocks with rendering hints.
type BlockExtractor interface {
	Blocks(html string) ([]Block, error)
}

// Normalizer converts source HTML into Markdown for human-readable snapshots.
type Normalizer interface {
	Normalize(html string) (string, error)
}

// Renderer converts indexed documents into a final export format.
type Renderer interface {
	Render(docs []IndexedDocument, meta ExportMetadata) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}

// Storage persists exported artifacts.
type Storage interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// ExportMetadata describes the source an export was produced from.
type ExportMetadata struct {
	Source    string `json:"source"`
	Title     string `json:"title"`
	Documents int    `json:"documents"`
	CreatedAt string `json:"created_at"` // ISO8601
}
