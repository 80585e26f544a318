// Package render provides export renderers for indexed documents.
// This file implements the Markdown renderer, which rebuilds a readable
// outline of the constitution from the flat document list.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/constpipe/core"
)

// MarkdownRenderer writes documents as a Markdown outline: boundaries and
// declarations become headings, content becomes paragraphs and lists.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render writes the outline.
func (r *MarkdownRenderer) Render(docs []core.IndexedDocument, meta core.ExportMetadata) ([]byte, error) {
	var b bytes.Buffer
	if meta.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", meta.Title)
	}
	if meta.Source != "" {
		fmt.Fprintf(&b, "_Fonte: %s_\n\n", meta.Source)
	}

	for _, d := range docs {
		if level := headingLevel(d.Kind); level > 0 {
			fmt.Fprintf(&b, "%s %s\n\n", strings.Repeat("#", level), d.Text)
			continue
		}
		switch d.Kind {
		case core.KindItem:
			fmt.Fprintf(&b, "- %s - %s\n", d.Number, d.Text)
		case core.KindSubitem:
			fmt.Fprintf(&b, "  - %s %s\n", d.Number, d.Text)
		default:
			if d.Number != "" {
				fmt.Fprintf(&b, "\n**%s** %s\n\n", d.Number, d.Text)
			} else {
				fmt.Fprintf(&b, "%s\n\n", d.Text)
			}
		}
	}
	return b.Bytes(), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

// headingLevel maps kinds that open a part of the outline to a heading
// level, or 0 for body text.
func headingLevel(k core.ElementKind) int {
	switch k {
	case core.KindAmendment, core.KindTransitional, core.KindTitle:
		return 2
	case core.KindChapter:
		return 3
	case core.KindSection:
		return 4
	case core.KindSubsection:
		return 5
	}
	return 0
}
