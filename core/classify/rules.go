package classify

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gaurav-prasanna/constpipe/core"
)

const (
	// MinBlockLength is the shortest block (in runes) that is classified at all.
	MinBlockLength = 3

	// SubstantiveLength is the shortest unmatched block kept as continuation text.
	SubstantiveLength = 10

	// maxDatePlaceLength bounds date/place lines, which are always short.
	maxDatePlaceLength = 120
)

var (
	amendmentPattern    = regexp.MustCompile(`(?i)^EMENDA\s+CONSTITUCIONAL\s+(?:DE\s+REVIS[ÃA]O\s+)?N[º°o.]`)
	transitionalPattern = regexp.MustCompile(`(?i)^ATO\s+DAS\s+DISPOSI[ÇC][ÕO]ES\s+CONSTITUCIONAIS\s+TRANSIT[ÓO]RIAS`)
	preamblePattern     = regexp.MustCompile(`(?i)^(?:PRE[ÂA]MBULO\b|N[óo]s,?\s+representantes\s+do\s+povo\s+brasileiro)`)

	titlePattern      = regexp.MustCompile(`^(?i:T[ÍI]TULO)\s+(?:[IVXLCDM]+|(?i:[ÚU]NICO))\b`)
	chapterPattern    = regexp.MustCompile(`^(?i:CAP[ÍI]TULO)\s+(?:[IVXLCDM]+|(?i:[ÚU]NICO))\b`)
	sectionPattern    = regexp.MustCompile(`^(?i:SE[ÇC][ÃA]O)\s+(?:[IVXLCDM]+|(?i:[ÚU]NICA))\b`)
	subsectionPattern = regexp.MustCompile(`^(?i:SUBSE[ÇC][ÃA]O)\s+(?:[IVXLCDM]+|(?i:[ÚU]NICA))\b`)

	signaturePattern    = regexp.MustCompile(`(?i)^\p{Lu}[\p{L}'.\s]+,\s*(?:\d+[º°]\s+)?(?:Presidente|Vice-Presidente|Secret[áa]rio|Suplente|Relator|Relatora)\b`)
	datePlacePattern    = regexp.MustCompile(`^\p{Lu}[\p{L}\s-]+,\s*(?:em\s+)?\d{1,2}[º°]?\s+de\s+\p{L}+\s+de\s+\d{4}`)
	// The verb must stand alone: Go's \b is ASCII-only and would accept
	// "promulga" inside "promulgação".
	promulgationPattern = regexp.MustCompile(`(?i)(?:^|[^\p{L}])promulga(?:m|mos)?(?:[^\p{L}]|$)`)
	promulgationSubject = regexp.MustCompile(`(?i)^(?:As\s+Mesas|A\s+Mesa|O\s+Congresso|O\s+Presidente|N[óo]s)\b`)
)

// boilerplatePrefixes are page headers, footers and seal markers.
var boilerplatePrefixes = []string{
	"presidência da república",
	"casa civil",
	"subchefia para assuntos jurídicos",
	"brasão",
	"texto compilado",
	"este texto não substitui",
}

// navigationLinks are layout-table links rejected when they are the whole block.
var navigationLinks = map[string]bool{
	"índice":         true,
	"voltar":         true,
	"texto original": true,
	"imprimir":       true,
	"topo":           true,
	"início":         true,
}

// IsBoilerplate reports whether a normalized block is page chrome.
func IsBoilerplate(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range boilerplatePrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return navigationLinks[strings.Trim(lower, " .:|»«")]
}

// Accept reports whether a normalized block is classified at all.
func Accept(text string) bool {
	if utf8.RuneCountInString(text) < MinBlockLength {
		return false
	}
	return !IsBoilerplate(text)
}

// Rule is one entry of the ordered classification table.
type Rule struct {
	Name string
	Kind core.ElementKind

	// Match reports whether the rule applies to a normalized block.
	Match func(b core.Block, ctx core.HierarchicalContext) bool

	// Apply returns the context after the block and the text to emit.
	Apply func(ctx core.HierarchicalContext, text string) (core.HierarchicalContext, string)
}

// DefaultRules returns the classification table in priority order.
// The first matching rule wins; the order is part of the contract.
//
// Items and sub-items never compete: an item is an upper-case roman numeral
// followed by a dash, a sub-item a single lower-case letter and ")".
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:  "amendment",
			Kind:  core.KindAmendment,
			Match: textMatch(amendmentPattern),
			Apply: func(ctx core.HierarchicalContext, text string) (core.HierarchicalContext, string) {
				return ctx.WithDivision(text), text
			},
		},
		{
			Name: "transitional",
			Kind: core.KindTransitional,
			Match: func(b core.Block, ctx core.HierarchicalContext) bool {
				if transitionalPattern.MatchString(b.Text) {
					return true
				}
				// Articles of the transitional act keep the declaration kind.
				_, _, isArticle := ArticleToken(b.Text)
				return isArticle && transitionalPattern.MatchString(ctx.Division)
			},
			Apply: func(ctx core.HierarchicalContext, text string) (core.HierarchicalContext, string) {
				if token, _, ok := ArticleToken(text); ok {
					return ctx.WithArticle(token), text
				}
				return ctx.WithDivision(text), text
			},
		},
		{
			Name:  "preamble",
			Kind:  core.KindPreamble,
			Match: textMatch(preamblePattern),
			Apply: func(ctx core.HierarchicalContext, text string) (core.HierarchicalContext, string) {
				return ctx.WithoutStructure(), text
			},
		},
		boundaryRule("title", core.KindTitle, titlePattern, core.HierarchicalContext.WithTitle),
		boundaryRule("chapter", core.KindChapter, chapterPattern, core.HierarchicalContext.WithChapter),
		boundaryRule("section", core.KindSection, sectionPattern, core.HierarchicalContext.WithSection),
		boundaryRule("subsection", core.KindSubsection, subsectionPattern, core.HierarchicalContext.WithSubsection),
		{
			Name: "article",
			Kind: core.KindArticle,
			Match: func(b core.Block, _ core.HierarchicalContext) bool {
				_, _, ok := ArticleToken(b.Text)
				return ok
			},
			Apply: func(ctx core.HierarchicalContext, text string) (core.HierarchicalContext, string) {
				token, rest, _ := ArticleToken(text)
				return ctx.WithArticle(token), rest
			},
		},
		contentRule("paragraph", core.KindParagraph, ParagraphToken),
		contentRule("item", core.KindItem, ItemToken),
		contentRule("subitem", core.KindSubitem, SubitemToken),
		{
			Name:  "signature",
			Kind:  core.KindSignature,
			Match: textMatch(signaturePattern),
			Apply: keep,
		},
		{
			Name: "date_place",
			Kind: core.KindDatePlace,
			Match: func(b core.Block, _ core.HierarchicalContext) bool {
				return utf8.RuneCountInString(b.Text) <= maxDatePlaceLength && datePlacePattern.MatchString(b.Text)
			},
			Apply: keep,
		},
		{
			Name:  "promulgation",
			Kind:  core.KindPromulgation,
			Match: matchPromulgation,
			Apply: keep,
		},
	}
}

// matchPromulgation accepts the enacting clause only: the verb plus either a
// heading hint, an enacting body as subject, or a trailing colon introducing
// the enacted text.
func matchPromulgation(b core.Block, _ core.HierarchicalContext) bool {
	if !promulgationPattern.MatchString(b.Text) {
		return false
	}
	return b.Centered || b.Bold || promulgationSubject.MatchString(b.Text) || strings.HasSuffix(b.Text, ":")
}

func keep(ctx core.HierarchicalContext, text string) (core.HierarchicalContext, string) {
	return ctx, text
}

func textMatch(re *regexp.Regexp) func(core.Block, core.HierarchicalContext) bool {
	return func(b core.Block, _ core.HierarchicalContext) bool {
		return re.MatchString(b.Text)
	}
}

// boundaryRule needs both the localized prefix and a centered or bold hint,
// so inline mentions such as "o Título II desta Constituição" never open a level.
func boundaryRule(name string, kind core.ElementKind, re *regexp.Regexp,
	enter func(core.HierarchicalContext, string) core.HierarchicalContext) Rule {
	return Rule{
		Name: name,
		Kind: kind,
		Match: func(b core.Block, _ core.HierarchicalContext) bool {
			return (b.Centered || b.Bold) && re.MatchString(b.Text)
		},
		Apply: func(ctx core.HierarchicalContext, text string) (core.HierarchicalContext, string) {
			return enter(ctx, text), text
		},
	}
}

// contentRule matches paragraphs, items and sub-items. They never change the
// context; the token stays in the text for the transformer.
func contentRule(name string, kind core.ElementKind, token func(string) (string, string, bool)) Rule {
	return Rule{
		Name: name,
		Kind: kind,
		Match: func(b core.Block, _ core.HierarchicalContext) bool {
			_, _, ok := token(b.Text)
			return ok
		},
		Apply: keep,
	}
}
