// Package chunk splits a large HTML document into tag-safe chunks so that
// extraction and classification can run over bounded pieces of input.
// A chunk always ends right after the closing tag of a block-level element
// while no wrapper element (table, list, blockquote, centered container) is
// open; no tag, block element or wrapper is ever split across chunks.
package chunk

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// DefaultSize is the minimum chunk size in bytes when none is configured.
const DefaultSize = 256 * 1024

// blockEnds are the elements whose closing tag may end a chunk.
var blockEnds = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "div": true, "center": true, "blockquote": true,
	"ul": true, "ol": true, "table": true,
}

// wrappers are elements whose content is parsed differently, or loses its
// hints, when read without the opening tag.
var wrappers = map[string]bool{
	"table": true, "center": true, "blockquote": true, "ul": true, "ol": true, "dl": true,
}

// Chunker yields consecutive tag-safe chunks of a document.
type Chunker struct {
	Size int // minimum bytes per chunk; the last chunk may be shorter

	doc    string
	z      *html.Tokenizer
	start  int
	offset int
	open   []string
	done   bool
}

// New creates a Chunker over doc.
// Defaults to DefaultSize if size <= 0.
func New(doc string, size int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	return &Chunker{
		Size: size,
		doc:  doc,
		z:    html.NewTokenizer(strings.NewReader(doc)),
	}
}

// Next returns the next chunk. ok is false once the document is exhausted.
func (c *Chunker) Next() (chunk string, ok bool) {
	if c.done {
		return "", false
	}
	for {
		tt := c.z.Next()
		if tt == html.ErrorToken {
			c.done = true
			if c.z.Err() != io.EOF {
				// The tokenizer gave up; the rest is one chunk.
				c.offset = len(c.doc)
			}
			return c.remainder()
		}
		c.offset += len(c.z.Raw())
		switch tt {
		case html.StartTagToken:
			c.push()
			continue
		case html.EndTagToken:
		default:
			continue
		}
		name, _ := c.z.TagName()
		c.pop(string(name))
		if len(c.open) > 0 || c.offset-c.start < c.Size || !blockEnds[string(name)] {
			continue
		}
		chunk = c.doc[c.start:c.offset]
		c.start = c.offset
		return chunk, true
	}
}

// push records a wrapper start tag. Elements carrying a centering attribute
// count as wrappers since their descendants inherit the hint.
func (c *Chunker) push() {
	name, hasAttr := c.z.TagName()
	tag := string(name)
	centered := false
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = c.z.TagAttr()
		if centerAttr(string(key), string(val)) {
			centered = true
		}
	}
	if wrappers[tag] || centered {
		c.open = append(c.open, tag)
	}
}

// pop closes the innermost open wrapper named tag and everything above it.
// End tags of elements that were never tracked are ignored.
func (c *Chunker) pop(tag string) {
	for i := len(c.open) - 1; i >= 0; i-- {
		if c.open[i] == tag {
			c.open = c.open[:i]
			return
		}
	}
}

func centerAttr(key, val string) bool {
	val = strings.ToLower(val)
	switch key {
	case "align":
		return strings.TrimSpace(val) == "center"
	case "style":
		return strings.Contains(strings.ReplaceAll(val, " ", ""), "text-align:center")
	case "class":
		return strings.Contains(val, "center")
	}
	return false
}

func (c *Chunker) remainder() (string, bool) {
	if c.start >= len(c.doc) {
		return "", false
	}
	chunk := c.doc[c.start:]
	c.start = len(c.doc)
	return chunk, true
}

// Split returns all chunks of doc in order. Concatenating them yields doc.
func Split(doc string, size int) []string {
	c := New(doc, size)
	var chunks []string
	for {
		chunk, ok := c.Next()
		if !ok {
			return chunks
		}
		chunks = append(chunks, chunk)
	}
}
