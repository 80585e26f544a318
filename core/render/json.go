// JSON renderer. Writes the documents exactly as they are indexed, with
// export metadata and a count per kind.

package render

import (
	"encoding/json"
	"fmt"

	"github.com/gaurav-prasanna/constpipe/core"
)

// JSONRenderer produces the JSON export.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Export is the top-level JSON structure.
type Export struct {
	Metadata  core.ExportMetadata      `json:"metadata"`
	Kinds     map[core.ElementKind]int `json:"kinds"`
	Documents []core.IndexedDocument   `json:"documents"`
}

// Render marshals docs and meta.
func (r *JSONRenderer) Render(docs []core.IndexedDocument, meta core.ExportMetadata) ([]byte, error) {
	if docs == nil {
		docs = []core.IndexedDocument{}
	}
	meta.Documents = len(docs)

	data, err := json.MarshalIndent(Export{
		Metadata:  meta,
		Kinds:     CountKinds(docs),
		Documents: docs,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

// CountKinds returns the number of documents per kind.
func CountKinds(docs []core.IndexedDocument) map[core.ElementKind]int {
	counts := make(map[core.ElementKind]int)
	for _, d := range docs {
		counts[d.Kind]++
	}
	return counts
}
