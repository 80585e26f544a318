package core

// ElementKind is the structural type assigned to a classified block.
type ElementKind string

const (
	KindTitle      ElementKind = "TITLE"
	KindChapter    ElementKind = "CHAPTER"
	KindSection    ElementKind = "SECTION"
	KindSubsection ElementKind = "SUBSECTION"

	KindPreamble     ElementKind = "PREAMBLE"
	KindPromulgation ElementKind = "PROMULGATION"
	KindAmendment    ElementKind = "AMENDMENT"
	KindTransitional ElementKind = "TRANSITIONAL_PROVISIONS"

	KindArticle   ElementKind = "ARTICLE"
	KindParagraph ElementKind = "PARAGRAPH"
	KindItem      ElementKind = "ITEM"
	KindSubitem   ElementKind = "SUBITEM"

	KindSignature ElementKind = "SIGNATURE"
	KindDatePlace ElementKind = "DATE_PLACE"

	// KindTransitionalArticle is only produced by the transformer, for a
	// transitional-provisions element that opens with an article token.
	KindTransitionalArticle ElementKind = "TRANSITIONAL_ARTICLE"
)

// IsBoundary reports whether k opens a structural level.
func (k ElementKind) IsBoundary() bool {
	switch k {
	case KindTitle, KindChapter, KindSection, KindSubsection:
		return true
	}
	return false
}

// IsDeclaration reports whether k is one of the top-level declaration kinds.
func (k ElementKind) IsDeclaration() bool {
	switch k {
	case KindPreamble, KindPromulgation, KindAmendment, KindTransitional:
		return true
	}
	return false
}

// IsContent reports whether k carries article content.
func (k ElementKind) IsContent() bool {
	switch k {
	case KindArticle, KindParagraph, KindItem, KindSubitem:
		return true
	}
	return false
}

// IsTerminal reports whether k is consumed without producing a document.
func (k ElementKind) IsTerminal() bool {
	return k == KindSignature || k == KindDatePlace
}

// Block is one normalized text block of the source document.
type Block struct {
	Text     string
	Centered bool
	Bold     bool
	HasLink  bool
	Href     string
}

// HierarchicalContext records the active ancestor labels at a point of the
// traversal. It is a value: transitions return a modified copy.
//
// Entering a level clears every field below it. Captions hold the first
// continuation block following a boundary (e.g. "DOS PRINCÍPIOS FUNDAMENTAIS").
type HierarchicalContext struct {
	Division          string `json:"division,omitempty"`
	Title             string `json:"title,omitempty"`
	TitleCaption      string `json:"title_caption,omitempty"`
	Chapter           string `json:"chapter,omitempty"`
	ChapterCaption    string `json:"chapter_caption,omitempty"`
	Section           string `json:"section,omitempty"`
	SectionCaption    string `json:"section_caption,omitempty"`
	Subsection        string `json:"subsection,omitempty"`
	SubsectionCaption string `json:"subsection_caption,omitempty"`
	ArticleNumber     string `json:"article_number,omitempty"`
}

// WithDivision enters a top-level division, clearing everything below it.
func (c HierarchicalContext) WithDivision(label string) HierarchicalContext {
	return HierarchicalContext{Division: label}
}

// WithTitle enters a title, clearing chapter, section, subsection and article.
func (c HierarchicalContext) WithTitle(label string) HierarchicalContext {
	return HierarchicalContext{Division: c.Division, Title: label}
}

// WithChapter enters a chapter, clearing section, subsection and article.
func (c HierarchicalContext) WithChapter(label string) HierarchicalContext {
	out := c.upTo(KindTitle)
	out.Chapter = label
	return out
}

// WithSection enters a section, clearing subsection and article.
func (c HierarchicalContext) WithSection(label string) HierarchicalContext {
	out := c.upTo(KindChapter)
	out.Section = label
	return out
}

// WithSubsection enters a subsection, clearing the article.
func (c HierarchicalContext) WithSubsection(label string) HierarchicalContext {
	out := c.upTo(KindSection)
	out.Subsection = label
	return out
}

// WithArticle sets the active article number.
func (c HierarchicalContext) WithArticle(number string) HierarchicalContext {
	c.ArticleNumber = number
	return c
}

// WithoutStructure clears title and everything below it, keeping the division.
func (c HierarchicalContext) WithoutStructure() HierarchicalContext {
	return HierarchicalContext{Division: c.Division}
}

// WithCaption sets the caption of the given boundary level.
func (c HierarchicalContext) WithCaption(level ElementKind, caption string) HierarchicalContext {
	switch level {
	case KindTitle:
		c.TitleCaption = caption
	case KindChapter:
		c.ChapterCaption = caption
	case KindSection:
		c.SectionCaption = caption
	case KindSubsection:
		c.SubsectionCaption = caption
	}
	return c
}

// Caption returns the caption of the given boundary level.
func (c HierarchicalContext) Caption(level ElementKind) string {
	switch level {
	case KindTitle:
		return c.TitleCaption
	case KindChapter:
		return c.ChapterCaption
	case KindSection:
		return c.SectionCaption
	case KindSubsection:
		return c.SubsectionCaption
	}
	return ""
}

// Label returns the boundary label of the given level.
func (c HierarchicalContext) Label(level ElementKind) string {
	switch level {
	case KindTitle:
		return c.Title
	case KindChapter:
		return c.Chapter
	case KindSection:
		return c.Section
	case KindSubsection:
		return c.Subsection
	}
	return ""
}

// Deepest returns the most specific open boundary level, falling back to
// the article when only an article is open. ok is false when nothing is open.
func (c HierarchicalContext) Deepest() (level ElementKind, ok bool) {
	switch {
	case c.Subsection != "":
		return KindSubsection, true
	case c.Section != "":
		return KindSection, true
	case c.Chapter != "":
		return KindChapter, true
	case c.Title != "":
		return KindTitle, true
	case c.ArticleNumber != "":
		return KindArticle, true
	}
	return "", false
}

// upTo keeps the fields of level and every level above it.
func (c HierarchicalContext) upTo(level ElementKind) HierarchicalContext {
	out := HierarchicalContext{Division: c.Division, Title: c.Title, TitleCaption: c.TitleCaption}
	if level == KindTitle {
		return out
	}
	out.Chapter, out.ChapterCaption = c.Chapter, c.ChapterCaption
	if level == KindChapter {
		return out
	}
	out.Section, out.SectionCaption = c.Section, c.SectionCaption
	return out
}

// BoundaryLevels lists the boundary kinds from outermost to innermost.
var BoundaryLevels = []ElementKind{KindTitle, KindChapter, KindSection, KindSubsection}

// RawElement is one classified block. It is never modified after emission.
type RawElement struct {
	Kind    ElementKind
	Text    string
	Context HierarchicalContext
	Attrs   map[string]string
	Seq     int
	Source  string
}

// IndexedDocument is one searchable unit produced by the transformer.
type IndexedDocument struct {
	ID               string      `json:"id"`
	Kind             ElementKind `json:"kind"`
	Number           string      `json:"number,omitempty"`
	FullReference    string      `json:"full_reference"`
	Text             string      `json:"text"`
	ContextText      string      `json:"context_text,omitempty"`
	ParentTitle      string      `json:"parent_title,omitempty"`
	ParentChapter    string      `json:"parent_chapter,omitempty"`
	ParentSection    string      `json:"parent_section,omitempty"`
	ParentSubsection string      `json:"parent_subsection,omitempty"`
	ParentArticle    string      `json:"parent_article,omitempty"`
	Source           string      `json:"source"`
	IndexedAt        int64       `json:"indexed_at"`
	Tags             []string    `json:"tags"`
}
