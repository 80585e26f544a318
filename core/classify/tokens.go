package classify

import (
	"regexp"
	"strings"
)

// Numbering tokens. Each pattern captures the token in group 1; the whole
// match also covers the punctuation separating it from the text.
var (
	articleTokenPattern   = regexp.MustCompile(`^(Art\.?\s*\d+(?:\.\d{3})*(?:\s*[º°])?(?:-[A-Z])?)[.\s]*(?:[-–—]\s+)?`)
	paragraphTokenPattern = regexp.MustCompile(`^(§\s*\d+(?:\.\d{3})*(?:\s*[º°])?(?:-[A-Z])?|(?i:par[áa]grafo\s+[úu]nico))[.:\s]*(?:[-–—]\s+)?`)
	itemTokenPattern      = regexp.MustCompile(`^([IVXLCDM]+)\s*[-–—]\s*`)
	subitemTokenPattern   = regexp.MustCompile(`^([a-z]\))\s*`)
)

// SoleParagraph is the fixed token of an article's only paragraph.
const SoleParagraph = "Parágrafo único"

// ArticleToken splits a leading "Art. N" token from text.
func ArticleToken(text string) (token, rest string, ok bool) {
	return splitToken(articleTokenPattern, text, normalizeArticle)
}

// ParagraphToken splits a leading "§ N" or "Parágrafo único" token from text.
func ParagraphToken(text string) (token, rest string, ok bool) {
	return splitToken(paragraphTokenPattern, text, normalizeParagraph)
}

// ItemToken splits a leading roman numeral followed by a dash.
func ItemToken(text string) (token, rest string, ok bool) {
	return splitToken(itemTokenPattern, text, nil)
}

// SubitemToken splits a leading "a)" token.
func SubitemToken(text string) (token, rest string, ok bool) {
	return splitToken(subitemTokenPattern, text, nil)
}

func splitToken(re *regexp.Regexp, text string, norm func(string) string) (string, string, bool) {
	m := re.FindStringSubmatchIndex(text)
	if m == nil {
		return "", text, false
	}
	token := text[m[2]:m[3]]
	if norm != nil {
		token = norm(token)
	}
	return token, strings.TrimSpace(text[m[1]:]), true
}

// normalizeArticle renders "Art.5 º" and "Art 5º" as "Art. 5º".
func normalizeArticle(token string) string {
	number := strings.TrimSpace(strings.TrimLeft(strings.TrimPrefix(token, "Art"), "."))
	number = strings.Join(strings.Fields(number), "")
	return "Art. " + number
}

func normalizeParagraph(token string) string {
	if !strings.HasPrefix(token, "§") {
		return SoleParagraph
	}
	number := strings.Join(strings.Fields(strings.TrimPrefix(token, "§")), "")
	return "§ " + number
}
