// Package normalize implements the Normalizer interface.
// It turns the source HTML into a Markdown snapshot: a human-readable copy of
// the document as fetched, stored next to the index or exported on request.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/constpipe/core/extract"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// MarkdownNormalizer converts HTML to Markdown using html-to-markdown.
type MarkdownNormalizer struct{}

// New creates a MarkdownNormalizer.
func New() *MarkdownNormalizer {
	return &MarkdownNormalizer{}
}

// Normalize strips noise elements from html and converts the rest into
// Markdown.
func (n *MarkdownNormalizer) Normalize(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}
	for _, sel := range extract.NoiseSelectors {
		doc.Find(sel).Remove()
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	cleaned, err := body.Html()
	if err != nil {
		return "", fmt.Errorf("serializing HTML: %w", err)
	}

	markdown, err := htmltomarkdown.ConvertString(cleaned)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return strings.TrimSpace(blankRuns.ReplaceAllString(markdown, "\n\n")) + "\n", nil
}
