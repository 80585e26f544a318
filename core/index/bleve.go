package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// schemaKey is the internal key the schema is stored under.
var schemaKey = []byte("constpipe:schema")

// exactSuffix names the keyword copy of fields that are both searched and sorted.
const exactSuffix = "_exact"

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// ValidateName checks that name is usable as an index, file and table name.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return NewError(KindSchema, name, fmt.Errorf("invalid index name (use lower-case letters, digits, '-' and '_')"))
	}
	return nil
}

// BleveEngine stores each index as a Bleve index under a root directory,
// or in memory when the root is empty.
type BleveEngine struct {
	mu      sync.RWMutex
	root    string
	indexes map[string]bleve.Index
	schemas map[string]Schema
	logger  *slog.Logger
	closed  bool
}

// NewBleveEngine creates an engine rooted at dir. An empty dir keeps all
// indexes in memory, which is what tests use.
func NewBleveEngine(dir string, logger *slog.Logger) *BleveEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &BleveEngine{
		root:    dir,
		indexes: make(map[string]bleve.Index),
		schemas: make(map[string]Schema),
		logger:  logger,
	}
}

// Root returns the index directory ("" for in-memory engines).
func (e *BleveEngine) Root() string {
	return e.root
}

func (e *BleveEngine) path(name string) string {
	return filepath.Join(e.root, name+".bleve")
}

// RetrieveIndex returns the stored schema of an index.
func (e *BleveEngine) RetrieveIndex(_ context.Context, name string) (*Schema, error) {
	_, schema, err := e.open(name)
	if err != nil {
		return nil, err
	}
	return &schema, nil
}

// open returns a cached or freshly opened index.
func (e *BleveEngine) open(name string) (bleve.Index, Schema, error) {
	if err := ValidateName(name); err != nil {
		return nil, Schema{}, err
	}

	e.mu.RLock()
	idx, ok := e.indexes[name]
	schema := e.schemas[name]
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, Schema{}, NewError(KindTransport, name, errors.New("engine is closed"))
	}
	if ok {
		return idx, schema, nil
	}
	if e.root == "" {
		return nil, Schema{}, NewError(KindNotFound, name, nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if idx, ok := e.indexes[name]; ok {
		return idx, e.schemas[name], nil
	}

	idx, err := bleve.Open(e.path(name))
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, Schema{}, NewError(KindNotFound, name, nil)
	}
	if err != nil {
		return nil, Schema{}, NewError(KindTransport, name, fmt.Errorf("opening bleve index: %w", err))
	}

	raw, err := idx.GetInternal(schemaKey)
	if err != nil || len(raw) == 0 {
		_ = idx.Close()
		return nil, Schema{}, NewError(KindSchema, name, fmt.Errorf("reading stored schema: %v", err))
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		_ = idx.Close()
		return nil, Schema{}, NewError(KindSchema, name, fmt.Errorf("decoding stored schema: %w", err))
	}

	e.indexes[name] = idx
	e.schemas[name] = schema
	return idx, schema, nil
}

// CreateIndex creates an index with a mapping derived from schema.
func (e *BleveEngine) CreateIndex(_ context.Context, schema Schema) error {
	name := schema.Name
	if err := ValidateName(name); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.indexes[name]; ok {
		return NewError(KindAlreadyExists, name, nil)
	}

	m, err := buildMapping(schema)
	if err != nil {
		return NewError(KindSchema, name, err)
	}

	var idx bleve.Index
	if e.root == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if err := os.MkdirAll(e.root, 0755); err != nil {
			return NewError(KindTransport, name, fmt.Errorf("creating index directory: %w", err))
		}
		idx, err = bleve.New(e.path(name), m)
		if errors.Is(err, bleve.ErrorIndexPathExists) {
			return NewError(KindAlreadyExists, name, nil)
		}
	}
	if err != nil {
		return NewError(KindTransport, name, fmt.Errorf("creating bleve index: %w", err))
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		_ = idx.Close()
		return NewError(KindSchema, name, err)
	}
	if err := idx.SetInternal(schemaKey, raw); err != nil {
		_ = idx.Close()
		return NewError(KindTransport, name, fmt.Errorf("storing schema: %w", err))
	}

	e.indexes[name] = idx
	e.schemas[name] = schema
	e.logger.Debug("bleve_index_created", slog.String("index", name), slog.String("path", e.root))
	return nil
}

// UpsertBatch indexes records in one Bleve batch. Indexing an existing ID
// replaces the document.
func (e *BleveEngine) UpsertBatch(_ context.Context, name string, records []Record, _ UpsertOptions) ([]DocResult, error) {
	idx, schema, err := e.open(name)
	if err != nil {
		return nil, err
	}

	valid, positions, results := coerceAll(schema, records)
	batch := idx.NewBatch()
	for i, rec := range valid {
		pos := positions[i]
		doc := withExactFields(schema, rec)
		if err := batch.Index(rec.ID(), doc); err != nil {
			results[pos].Err = fmt.Errorf("%w: %v", ErrRejected, err)
			positions[i] = -1
		}
	}
	if batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			return nil, NewError(KindTransport, name, fmt.Errorf("executing batch: %w", err))
		}
	}
	for _, pos := range positions {
		if pos >= 0 {
			results[pos].OK = true
		}
	}
	return results, nil
}

// Hit is one search result.
type Hit struct {
	ID            string  `json:"id"`
	Score         float64 `json:"score"`
	Kind          string  `json:"kind"`
	FullReference string  `json:"full_reference"`
	Text          string  `json:"text"`
}

// Search runs a query-string query, best matches first, ties broken by the
// schema's default sort field.
func (e *BleveEngine) Search(ctx context.Context, name, query string, limit int) ([]Hit, error) {
	idx, schema, err := e.open(name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	req := bleve.NewSearchRequest(bleve.NewQueryStringQuery(query))
	req.Size = limit
	req.Fields = []string{FieldKind, FieldFullReference, FieldText}
	req.SortBy([]string{"-_score", sortField(schema, schema.DefaultSort)})

	result, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, NewError(KindTransport, name, fmt.Errorf("search failed: %w", err))
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		hit.Kind, _ = h.Fields[FieldKind].(string)
		hit.FullReference, _ = h.Fields[FieldFullReference].(string)
		hit.Text, _ = h.Fields[FieldText].(string)
		hits = append(hits, hit)
	}
	return hits, nil
}

// Count returns the number of documents in an index.
func (e *BleveEngine) Count(_ context.Context, name string) (uint64, error) {
	idx, _, err := e.open(name)
	if err != nil {
		return 0, err
	}
	n, err := idx.DocCount()
	if err != nil {
		return 0, NewError(KindTransport, name, err)
	}
	return n, nil
}

// Close closes every open index.
func (e *BleveEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	for name, idx := range e.indexes {
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// buildMapping derives a Bleve mapping: keyword fields for keys and facets,
// standard-analyzed text for searchable fields, numeric for integers.
func buildMapping(schema Schema) (*mapping.IndexMappingImpl, error) {
	if len(schema.Fields) == 0 {
		return nil, errors.New("schema has no fields")
	}

	doc := bleve.NewDocumentStaticMapping()
	for _, f := range schema.Fields {
		switch {
		case f.Type == TypeInt:
			doc.AddFieldMappingsAt(f.Name, bleve.NewNumericFieldMapping())
		case f.Search:
			text := bleve.NewTextFieldMapping()
			text.Analyzer = standard.Name
			doc.AddFieldMappingsAt(f.Name, text)
			if f.Sort {
				exact := bleve.NewKeywordFieldMapping()
				exact.Store = false
				exact.IncludeInAll = false
				doc.AddFieldMappingsAt(f.Name+exactSuffix, exact)
			}
		default:
			doc.AddFieldMappingsAt(f.Name, bleve.NewKeywordFieldMapping())
		}
	}

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = standard.Name
	return m, nil
}

// withExactFields copies sorted text fields into their keyword twins.
func withExactFields(schema Schema, rec Record) map[string]any {
	doc := make(map[string]any, len(rec)+1)
	for k, v := range rec {
		doc[k] = v
	}
	for _, f := range schema.Fields {
		if f.Search && f.Sort && f.Type == TypeString {
			doc[f.Name+exactSuffix] = rec[f.Name]
		}
	}
	return doc
}

func sortField(schema Schema, name string) string {
	if f, ok := schema.Field(name); ok && f.Search && f.Sort {
		return name + exactSuffix
	}
	return name
}
