package transform

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gaurav-prasanna/constpipe/core"
)

// labelPrefixLength is how much of each title/chapter label or caption is
// searched for keywords.
const labelPrefixLength = 100

// Tag is one entry of the controlled vocabulary.
type Tag struct {
	Name     string
	Keywords []string
}

// Vocabulary is the fixed tag list. Matching is literal, on whole words,
// ignoring case and accents. Tags are reported in this order.
var Vocabulary = []Tag{
	{Name: "direitos-fundamentais", Keywords: []string{"direitos fundamentais", "direitos e garantias fundamentais"}},
	{Name: "habeas-corpus", Keywords: []string{"habeas corpus"}},
	{Name: "habeas-data", Keywords: []string{"habeas data"}},
	{Name: "mandado-de-seguranca", Keywords: []string{"mandado de segurança"}},
	{Name: "mandado-de-injuncao", Keywords: []string{"mandado de injunção"}},
	{Name: "acao-popular", Keywords: []string{"ação popular"}},
	{Name: "poder-legislativo", Keywords: []string{"poder legislativo", "congresso nacional"}},
	{Name: "poder-executivo", Keywords: []string{"poder executivo", "presidente da república"}},
	{Name: "poder-judiciario", Keywords: []string{"poder judiciário", "supremo tribunal federal"}},
	{Name: "saude", Keywords: []string{"saúde"}},
	{Name: "educacao", Keywords: []string{"educação", "ensino"}},
	{Name: "meio-ambiente", Keywords: []string{"meio ambiente"}},
	{Name: "tributacao", Keywords: []string{"tributação", "tributo", "tributos", "imposto", "impostos"}},
	{Name: "previdencia-social", Keywords: []string{"previdência social"}},
	{Name: "seguranca-publica", Keywords: []string{"segurança pública"}},
	{Name: "cultura", Keywords: []string{"cultura"}},
}

// folded vocabulary, computed once.
var foldedKeywords = func() [][]string {
	out := make([][]string, len(Vocabulary))
	for i, tag := range Vocabulary {
		for _, kw := range tag.Keywords {
			out[i] = append(out[i], Fold(kw))
		}
	}
	return out
}()

// Tags returns the vocabulary tags found in text or at the start of the
// active title and chapter labels and captions. The result is never nil.
func Tags(text string, ctx core.HierarchicalContext) []string {
	haystacks := []string{Fold(text)}
	for _, s := range []string{ctx.Title, ctx.TitleCaption, ctx.Chapter, ctx.ChapterCaption} {
		if s != "" {
			haystacks = append(haystacks, Fold(prefix(s, labelPrefixLength)))
		}
	}

	tags := []string{}
	for i, tag := range Vocabulary {
		if matchesAny(haystacks, foldedKeywords[i]) {
			tags = append(tags, tag.Name)
		}
	}
	return tags
}

func matchesAny(haystacks, keywords []string) bool {
	for _, h := range haystacks {
		for _, kw := range keywords {
			if containsWord(h, kw) {
				return true
			}
		}
	}
	return false
}

// containsWord reports whether needle occurs in s delimited by non-letters,
// so "cultura" does not match "agricultura".
func containsWord(s, needle string) bool {
	for from := 0; from <= len(s); {
		i := strings.Index(s[from:], needle)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(needle)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		from = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
