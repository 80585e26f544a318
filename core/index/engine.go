// Package index loads documents into a search engine.
//
// The Gateway owns the ingestion contract (ensure the index exists, upsert in
// ordered batches, isolate failures per batch); an Engine adapts one concrete
// search backend. Two engines are provided: an embedded Bleve index and a
// PostgreSQL database.
package index

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies engine errors so callers can branch without
// inspecting backend-specific error values.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindAlreadyExists
	KindTransport
	KindSchema
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindTransport:
		return "transport"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// Error is an engine error tagged with its kind.
type Error struct {
	Kind  ErrorKind
	Index string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("index %s: %s", e.Index, e.Kind)
	}
	return fmt.Sprintf("index %s: %s: %v", e.Index, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error.
func NewError(kind ErrorKind, index string, err error) *Error {
	return &Error{Kind: kind, Index: index, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ErrRejected marks a document that failed coercion.
var ErrRejected = errors.New("document rejected")

const (
	// ModeUpsert replaces an existing document with the same key.
	ModeUpsert = "upsert"

	// CoerceOrDrop converts mistyped fields where possible and rejects the
	// document otherwise.
	CoerceOrDrop = "coerce-or-drop"
)

// UpsertOptions is passed with every batch.
type UpsertOptions struct {
	Mode      string
	BatchSize int
	Coerce    string
}

// DefaultUpsertOptions returns the options used by the Gateway.
func DefaultUpsertOptions(batchSize int) UpsertOptions {
	return UpsertOptions{Mode: ModeUpsert, BatchSize: batchSize, Coerce: CoerceOrDrop}
}

// DocResult is the per-document outcome of an upsert.
type DocResult struct {
	ID  string
	OK  bool
	Err error
}

// Engine is a search backend.
//
// UpsertBatch returns one result per record, in order. A returned error means
// the whole batch was not applied (transport failure); per-document
// rejections are reported in the results instead.
type Engine interface {
	RetrieveIndex(ctx context.Context, name string) (*Schema, error)
	CreateIndex(ctx context.Context, schema Schema) error
	UpsertBatch(ctx context.Context, name string, records []Record, opts UpsertOptions) ([]DocResult, error)
	Close() error
}

// coerceAll applies coerce-or-drop to every record. Valid records are
// returned with their position so engines can send them in one call.
func coerceAll(schema Schema, records []Record) (valid []Record, positions []int, results []DocResult) {
	results = make([]DocResult, len(records))
	for i, r := range records {
		id, _ := r[schema.Key()].(string)
		results[i].ID = id
		out, err := schema.Coerce(r)
		if err != nil {
			results[i].Err = err
			continue
		}
		valid = append(valid, out)
		positions = append(positions, i)
	}
	return valid, positions, results
}
