// Package classify assigns a structural kind to each text block of the
// constitution while tracking the hierarchical context (title → chapter →
// section → subsection → article).
//
// Classification is a sequential fold: every decision depends on the context
// left by all previous blocks, so blocks are never classified concurrently.
// A block that cannot be classified is dropped with a debug log entry; the
// classifier never fails.
package classify

import (
	"log/slog"
	"strings"

	"github.com/gaurav-prasanna/constpipe/core"
	"github.com/gaurav-prasanna/constpipe/core/extract"
	"github.com/gaurav-prasanna/constpipe/core/fetch"
)

// State is the value threaded through the fold.
type State struct {
	Context core.HierarchicalContext
	// Seq is the position the next emitted element receives.
	Seq int

	// pending is an article, or an article of the transitional act, whose
	// block held only its token; it takes the text of the next block.
	pending *core.RawElement
}

// Pending reports whether an article is waiting for its text.
func (s State) Pending() bool {
	return s.pending != nil
}

// Classifier runs the ordered rule table over a block sequence.
// It carries its State between Feed calls, so a document can be classified
// in several chunks with the same result as in one pass.
type Classifier struct {
	rules  []Rule
	source string
	logger *slog.Logger
	state  State
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRules replaces the rule table.
func WithRules(rules []Rule) Option {
	return func(c *Classifier) { c.rules = rules }
}

// WithLogger sets the logger used for unclassified blocks.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Classifier for a document read from source.
func New(source string, opts ...Option) *Classifier {
	c := &Classifier{
		rules:  DefaultRules(),
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify runs a fresh Classifier over blocks and flushes it.
func Classify(blocks []core.Block, source string, opts ...Option) []core.RawElement {
	c := New(source, opts...)
	out := c.Feed(blocks)
	return append(out, c.Flush()...)
}

// Rules returns the rule table in the order it is evaluated.
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// State returns the current fold state.
func (c *Classifier) State() State {
	return c.state
}

// Feed classifies blocks in order and returns the elements they produced.
// An article waiting for lookahead text is held until the next Feed or Flush.
func (c *Classifier) Feed(blocks []core.Block) []core.RawElement {
	var out []core.RawElement
	for _, b := range blocks {
		var emitted []core.RawElement
		c.state, emitted = c.Step(c.state, b)
		out = append(out, emitted...)
	}
	return out
}

// Flush emits a pending article without body text. Call it once at the end
// of the document.
func (c *Classifier) Flush() []core.RawElement {
	if c.state.pending == nil {
		return nil
	}
	el := *c.state.pending
	c.state.pending = nil
	return []core.RawElement{el}
}

// Step classifies one block. It does not modify the Classifier: the new state
// is returned together with the elements emitted for this block (zero, one,
// or two when a pending article is released).
func (c *Classifier) Step(st State, b core.Block) (State, []core.RawElement) {
	b.Text = extract.NormalizeSpace(b.Text)
	if !Accept(b.Text) {
		return st, nil
	}

	var out []core.RawElement
	if st.pending != nil {
		el := *st.pending
		st.pending = nil
		if c.match(b, st.Context) == nil {
			// Plain text: it is the article's body. A transitional article keeps
			// its token in front.
			el.Text = strings.TrimSpace(el.Text + " " + b.Text)
			return st, []core.RawElement{el}
		}
		// A structural block is never swallowed; the article stays empty.
		out = append(out, el)
	}

	rule := c.match(b, st.Context)
	if rule == nil {
		return c.fallback(st, b, out)
	}

	ctx, text := rule.Apply(st.Context, b.Text)
	st.Context = ctx
	el := c.element(&st, rule.Kind, text, b)
	if awaitsText(rule.Kind, text) {
		st.pending = &el
		return st, out
	}
	return st, append(out, el)
}

// awaitsText reports whether an element is an article token without body.
func awaitsText(kind core.ElementKind, text string) bool {
	switch kind {
	case core.KindArticle:
		return text == ""
	case core.KindTransitional:
		_, rest, ok := ArticleToken(text)
		return ok && rest == ""
	}
	return false
}

func (c *Classifier) match(b core.Block, ctx core.HierarchicalContext) *Rule {
	for i := range c.rules {
		if c.rules[i].Match(b, ctx) {
			return &c.rules[i]
		}
	}
	return nil
}

// fallback treats substantive unmatched text as a continuation of the most
// specific open level. The first continuation after a boundary becomes that
// level's caption.
func (c *Classifier) fallback(st State, b core.Block, out []core.RawElement) (State, []core.RawElement) {
	level, ok := st.Context.Deepest()
	if !ok || len([]rune(b.Text)) < SubstantiveLength {
		c.logger.Debug("block_unclassified",
			slog.Int("seq", st.Seq),
			slog.String("text", truncate(b.Text, 80)))
		return st, out
	}
	if level != core.KindArticle && st.Context.Caption(level) == "" {
		st.Context = st.Context.WithCaption(level, b.Text)
	}
	el := c.element(&st, level, b.Text, b)
	return st, append(out, el)
}

func (c *Classifier) element(st *State, kind core.ElementKind, text string, b core.Block) core.RawElement {
	el := core.RawElement{
		Kind:    kind,
		Text:    text,
		Context: st.Context,
		Seq:     st.Seq,
		Source:  c.source,
	}
	if b.HasLink {
		if href := fetch.ResolveURL(b.Href, c.source); href != "" {
			el.Attrs = map[string]string{"href": href}
		}
	}
	st.Seq++
	return el
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
