// Package extract implements the BlockExtractor interface.
// It walks an HTML document (or a tag-safe fragment of one) and returns its
// leaf text blocks in document order, together with the rendering hints the
// classifier relies on:
//  1. Noise elements (scripts, images, forms, …) are removed first.
//  2. Leaf block elements are selected in document order.
//  3. Each block gets centered/bold/link hints from its markup.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/constpipe/core"
	"golang.org/x/net/html"
)

// NoiseSelectors are HTML elements removed before extraction.
var NoiseSelectors = []string{
	"script", "style", "noscript", "head",
	"img", "picture", "figure",
	"iframe", "video", "audio",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
}

// blockSelector matches the elements that can carry a text block.
const blockSelector = "p, h1, h2, h3, h4, h5, h6, li, blockquote, center, td"

// HTMLExtractor turns HTML into ordered text blocks.
type HTMLExtractor struct{}

// New creates an HTMLExtractor.
func New() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Blocks parses html and returns its non-empty leaf blocks in document order.
func (e *HTMLExtractor) Blocks(src string) ([]core.Block, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	for _, sel := range NoiseSelectors {
		doc.Find(sel).Remove()
	}

	var blocks []core.Block
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// Only leaves: a <td> wrapping <p>s yields the paragraphs, not the cell.
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		text := NormalizeSpace(s.Text())
		if text == "" {
			return
		}
		b := core.Block{
			Text:     text,
			Centered: isCentered(s),
			Bold:     isBold(s, text),
		}
		if href, ok := s.Find("a[href]").First().Attr("href"); ok && href != "" {
			b.HasLink = true
			b.Href = href
		}
		blocks = append(blocks, b)
	})

	return blocks, nil
}

// NormalizeSpace collapses runs of whitespace (including non-breaking
// spaces) into single spaces and trims the result.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isCentered reports whether s or one of its ancestors is rendered centered.
func isCentered(s *goquery.Selection) bool {
	for cur := s; cur.Length() > 0; cur = cur.Parent() {
		node := cur.Get(0)
		if node.Type != html.ElementNode {
			break
		}
		if node.Data == "center" {
			return true
		}
		if align, ok := cur.Attr("align"); ok && strings.EqualFold(strings.TrimSpace(align), "center") {
			return true
		}
		if style, ok := cur.Attr("style"); ok {
			compact := strings.ToLower(strings.ReplaceAll(style, " ", ""))
			if strings.Contains(compact, "text-align:center") {
				return true
			}
		}
		if class, ok := cur.Attr("class"); ok && strings.Contains(strings.ToLower(class), "center") {
			return true
		}
		if node.Data == "body" {
			break
		}
	}
	return false
}

// isBold reports whether the block is a heading or all its text is bold.
func isBold(s *goquery.Selection, text string) bool {
	switch goquery.NodeName(s) {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	if s.ParentsFiltered("b, strong").Length() > 0 {
		return true
	}
	var bold strings.Builder
	s.Find("b, strong").Each(func(_ int, b *goquery.Selection) {
		// Nested <b><strong> would be counted twice.
		if b.ParentsFiltered("b, strong").Length() > 0 {
			return
		}
		bold.WriteString(" ")
		bold.WriteString(b.Text())
	})
	return bold.Len() > 0 && NormalizeSpace(bold.String()) == text
}

// Title returns the document's <title>, whitespace-normalized, or "" when
// it has none.
func Title(src string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return ""
	}
	return NormalizeSpace(doc.Find("title").First().Text())
}
