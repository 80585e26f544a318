package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/gaurav-prasanna/constpipe/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMeta = core.ExportMetadata{
	Source:    "https://www.planalto.gov.br/ccivil_03/constituicao/constituicao.htm",
	Title:     "Constituição da República Federativa do Brasil",
	CreatedAt: "2026-01-02T03:04:05Z",
}

func testDocs() []core.IndexedDocument {
	return []core.IndexedDocument{
		{ID: "titulo_i_0", Kind: core.KindTitle, FullReference: "TÍTULO I", Text: "TÍTULO I"},
		{ID: "titulo_i_capitulo_i_1", Kind: core.KindChapter, FullReference: "TÍTULO I, CAPÍTULO I", Text: "CAPÍTULO I"},
		{ID: "titulo_i_capitulo_i_art_5o_2", Kind: core.KindArticle, Number: "Art. 5º", Text: "Todos são iguais perante a lei"},
		{ID: "titulo_i_capitulo_i_art_5o_i_3", Kind: core.KindItem, Number: "I", Text: "homens e mulheres são iguais em direitos e obrigações;"},
		{ID: "titulo_i_capitulo_i_art_5o_i_a_4", Kind: core.KindSubitem, Number: "a)", Text: "primeira hipótese;"},
		{ID: "titulo_i_capitulo_i_art_5o_1o_5", Kind: core.KindParagraph, Number: "§ 1º", Text: "As normas têm aplicação imediata."},
	}
}

func TestMarkdownRenderer_Outline(t *testing.T) {
	// When: rendering a small slice of the constitution
	out, err := NewMarkdownRenderer().Render(testDocs(), testMeta)
	require.NoError(t, err)
	md := string(out)

	// Then: boundaries are headings by level and content is numbered
	assert.True(t, strings.HasPrefix(md, "# Constituição da República Federativa do Brasil\n"))
	assert.Contains(t, md, "_Fonte: https://www.planalto.gov.br/")
	assert.Contains(t, md, "\n## TÍTULO I\n")
	assert.Contains(t, md, "\n### CAPÍTULO I\n")
	assert.Contains(t, md, "**Art. 5º** Todos são iguais perante a lei")
	assert.Contains(t, md, "- I - homens e mulheres")
	assert.Contains(t, md, "  - a) primeira hipótese;")
	assert.Contains(t, md, "**§ 1º** As normas")
	assert.Less(t, strings.Index(md, "TÍTULO I"), strings.Index(md, "CAPÍTULO I"), "document order is kept")
	assert.Equal(t, ".md", NewMarkdownRenderer().Extension())
}

func TestJSONRenderer_Export(t *testing.T) {
	out, err := NewJSONRenderer().Render(testDocs(), testMeta)
	require.NoError(t, err)

	var got Export
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, 6, got.Metadata.Documents)
	assert.Equal(t, testMeta.Source, got.Metadata.Source)
	assert.Equal(t, 1, got.Kinds[core.KindArticle])
	assert.Equal(t, 1, got.Kinds[core.KindItem])
	require.Len(t, got.Documents, 6)
	assert.Equal(t, "titulo_i_0", got.Documents[0].ID)
}

func TestJSONRenderer_EmptyDocumentsIsArray(t *testing.T) {
	out, err := NewJSONRenderer().Render(nil, testMeta)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"documents": []`)
}

func TestPDFRenderer_Render(t *testing.T) {
	out, err := NewPDFRenderer().Render(testDocs(), testMeta)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
	assert.Equal(t, ".pdf", NewPDFRenderer().Extension())
}

func TestCountKinds(t *testing.T) {
	counts := CountKinds(testDocs())
	assert.Equal(t, map[core.ElementKind]int{
		core.KindTitle: 1, core.KindChapter: 1, core.KindArticle: 1,
		core.KindItem: 1, core.KindSubitem: 1, core.KindParagraph: 1,
	}, counts)
}
