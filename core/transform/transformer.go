// Package transform turns classified elements into flat, uniquely identified
// documents: full hierarchical references, parent fields, numbering tokens,
// context text and keyword tags.
package transform

import (
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gaurav-prasanna/constpipe/core"
	"github.com/gaurav-prasanna/constpipe/core/classify"
)

const (
	// ReferenceSeparator joins the labels of a full reference.
	ReferenceSeparator = ", "

	// ContextSeparator joins the parts of the context text.
	ContextSeparator = " | "

	// maxOwnText bounds the element text appended to boundary and
	// declaration references.
	maxOwnText = 80
)

// Transformer converts RawElements in order. It keeps per-article state
// (the captions of emitted articles and the active paragraph and item
// tokens), so elements must be fed in emission order.
type Transformer struct {
	// Now stamps IndexedAt. Defaults to time.Now.
	Now func() time.Time

	// MaxKeyLength bounds document identifiers.
	MaxKeyLength int

	logger *slog.Logger

	articles  map[string]string
	paragraph string
	item      string
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithClock sets the clock used for IndexedAt.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) {
		if now != nil {
			t.Now = now
		}
	}
}

// WithMaxKeyLength sets the identifier length limit.
func WithMaxKeyLength(n int) Option {
	return func(t *Transformer) {
		if n > 0 {
			t.MaxKeyLength = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transformer) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates a Transformer.
func New(opts ...Option) *Transformer {
	t := &Transformer{
		Now:          time.Now,
		MaxKeyLength: DefaultMaxKeyLength,
		logger:       slog.Default(),
		articles:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Reset clears the per-article state.
func (t *Transformer) Reset() {
	t.articles = make(map[string]string)
	t.paragraph, t.item = "", ""
}

// Transform converts a complete element sequence, starting from a clean state.
func (t *Transformer) Transform(elements []core.RawElement) []core.IndexedDocument {
	t.Reset()
	indexedAt := t.Now().Unix()
	docs := make([]core.IndexedDocument, 0, len(elements))
	for _, el := range elements {
		if doc, ok := t.next(el, indexedAt); ok {
			docs = append(docs, doc)
		}
	}
	t.logger.Debug("elements_transformed",
		slog.Int("elements", len(elements)),
		slog.Int("documents", len(docs)))
	return docs
}

// Next converts one element. ok is false when the element produces no
// document: terminal kinds and elements without text.
func (t *Transformer) Next(el core.RawElement) (core.IndexedDocument, bool) {
	return t.next(el, t.Now().Unix())
}

func (t *Transformer) next(el core.RawElement, indexedAt int64) (core.IndexedDocument, bool) {
	if el.Kind.IsTerminal() {
		return core.IndexedDocument{}, false
	}

	ctx := el.Context
	kind := el.Kind
	text := el.Text
	var number, reference, owner string

	switch {
	case kind == core.KindTransitional:
		t.resetArticle()
		if token, rest, ok := classify.ArticleToken(text); ok {
			kind = core.KindTransitionalArticle
			number, text = token, rest
			reference = join(ReferenceSeparator, ctx.Division, token)
			t.remember(token, text)
			break
		}
		t.articles = make(map[string]string)
		reference = declarationReference(ctx, text)

	case kind.IsDeclaration():
		t.Reset()
		reference = declarationReference(ctx, text)

	case kind.IsBoundary():
		t.Reset()
		reference = boundaryReference(ctx, kind, text)

	case kind == core.KindArticle:
		t.resetArticle()
		number = ctx.ArticleNumber
		reference = join(ReferenceSeparator, ancestors(ctx, number)...)
		t.remember(number, text)

	case kind == core.KindParagraph:
		number, text = split(classify.ParagraphToken, text)
		t.paragraph, t.item = number, ""
		owner = ctx.ArticleNumber
		reference = join(ReferenceSeparator, ancestors(ctx, owner, number)...)

	case kind == core.KindItem:
		number, text = split(classify.ItemToken, text)
		t.item = number
		owner = ctx.ArticleNumber
		reference = join(ReferenceSeparator, ancestors(ctx, owner, t.paragraph, number)...)

	case kind == core.KindSubitem:
		number, text = split(classify.SubitemToken, text)
		owner = ctx.ArticleNumber
		reference = join(ReferenceSeparator, ancestors(ctx, owner, t.paragraph, t.item, number)...)
	}

	if text == "" {
		return core.IndexedDocument{}, false
	}

	doc := core.IndexedDocument{
		ID:               MakeID(reference, el.Seq, t.MaxKeyLength),
		Kind:             kind,
		Number:           number,
		FullReference:    reference,
		Text:             text,
		ContextText:      t.contextText(ctx, owner, text),
		ParentTitle:      ctx.Title,
		ParentChapter:    ctx.Chapter,
		ParentSection:    ctx.Section,
		ParentSubsection: ctx.Subsection,
		ParentArticle:    owner,
		Source:           el.Source,
		IndexedAt:        indexedAt,
		Tags:             Tags(text, ctx),
	}
	return doc, true
}

// remember records the caption of an article the first time it is seen
// with text.
func (t *Transformer) remember(number, text string) {
	if number == "" || text == "" {
		return
	}
	if _, ok := t.articles[number]; !ok {
		t.articles[number] = text
	}
}

func (t *Transformer) resetArticle() {
	t.paragraph, t.item = "", ""
}

// contextText joins the active division, the ancestor labels and captions,
// the owning article's caption for non-article content, and the element's
// own text.
func (t *Transformer) contextText(ctx core.HierarchicalContext, owner, text string) string {
	parts := appendDistinct(nil, ctx.Division)
	for _, level := range core.BoundaryLevels {
		parts = appendDistinct(parts, ctx.Label(level))
		parts = appendDistinct(parts, ctx.Caption(level))
	}
	if owner != "" {
		parts = appendDistinct(parts, t.articles[owner])
	}
	parts = appendDistinct(parts, text)
	return strings.Join(parts, ContextSeparator)
}

func appendDistinct(parts []string, s string) []string {
	if s == "" || (len(parts) > 0 && parts[len(parts)-1] == s) {
		return parts
	}
	return append(parts, s)
}

// ancestors returns the active division and boundary labels followed by the
// given tokens.
func ancestors(ctx core.HierarchicalContext, tokens ...string) []string {
	out := []string{ctx.Division}
	for _, level := range core.BoundaryLevels {
		out = append(out, ctx.Label(level))
	}
	return append(out, tokens...)
}

// boundaryReference is the labels down to level, plus the element's own text
// when it is a continuation rather than the label itself.
func boundaryReference(ctx core.HierarchicalContext, level core.ElementKind, text string) string {
	labels := []string{ctx.Division}
	for _, l := range core.BoundaryLevels {
		labels = append(labels, ctx.Label(l))
		if l == level {
			break
		}
	}
	return withOwnText(labels, text)
}

func declarationReference(ctx core.HierarchicalContext, text string) string {
	return withOwnText([]string{ctx.Division}, text)
}

func withOwnText(labels []string, text string) string {
	last := ""
	for _, l := range labels {
		if l != "" {
			last = l
		}
	}
	if text != last {
		labels = append(labels, capRunes(text, maxOwnText))
	}
	return join(ReferenceSeparator, labels...)
}

func split(token func(string) (string, string, bool), text string) (string, string) {
	tok, rest, ok := token(text)
	if !ok {
		return "", text
	}
	return tok, rest
}

// join skips empty parts.
func join(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func capRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
