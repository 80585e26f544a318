package chunk

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/gaurav-prasanna/constpipe/core"
	"github.com/gaurav-prasanna/constpipe/core/classify"
	"github.com/gaurav-prasanna/constpipe/core/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source = "file://constituicao.htm"

func buildDocument() string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Constituição</title></head><body>`)
	b.WriteString(`<p align="center"><b>TÍTULO I</b></p>` + "\n")
	b.WriteString(`<p align="center">DOS PRINCÍPIOS FUNDAMENTAIS</p>` + "\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "<p>Art. %dº</p>\n", i)
		fmt.Fprintf(&b, "<p>Texto do artigo %d sobre a organização do Estado.</p>\n", i)
		fmt.Fprintf(&b, "<p>I - primeiro inciso do artigo %d;</p>\n", i)
		fmt.Fprintf(&b, "<p>a) alínea do artigo %d;</p>\n", i)
	}
	b.WriteString(`<p align="center"><b>TÍTULO II</b></p>` + "\n")
	b.WriteString(`<p>Art. 13. Texto final do documento de teste.</p>`)
	b.WriteString(`</body></html>`)
	return b.String()
}

func TestSplit_IsTagSafe(t *testing.T) {
	// Given: a document much larger than the chunk size
	doc := buildDocument()

	// When: splitting it
	chunks := Split(doc, 64)

	// Then: nothing is lost and every chunk but the last ends after a block closing tag
	require.Greater(t, len(chunks), 10)
	assert.Equal(t, doc, strings.Join(chunks, ""))
	for _, c := range chunks[:len(chunks)-1] {
		assert.GreaterOrEqual(t, len(c), 64)
		assert.True(t, strings.HasSuffix(c, "</p>"), "chunk ends mid-block: %q", c)
	}
}

func TestSplit_SmallDocumentIsOneChunk(t *testing.T) {
	doc := `<p>Art. 1º Texto.</p>`
	assert.Equal(t, []string{doc}, Split(doc, 0))
	assert.Empty(t, Split("", 10))
}

func TestChunker_NeverSplitsInlineMarkup(t *testing.T) {
	doc := `<p><b>TÍTULO I</b> e <a href="x">link</a></p><p>fim do texto</p>`

	chunks := Split(doc, 1)

	require.Len(t, chunks, 2)
	assert.Equal(t, `<p><b>TÍTULO I</b> e <a href="x">link</a></p>`, chunks[0])
}

func buildTableDocument() string {
	var b strings.Builder
	b.WriteString(`<html><body><p align="center"><b>TÍTULO I</b></p>` + "\n<table>\n")
	for i := 1; i <= 6; i++ {
		fmt.Fprintf(&b, "<tr><td>Art. %dº Texto do artigo %d dentro de uma tabela.</td></tr>\n", i, i)
	}
	b.WriteString("</table>\n<p>Art. 7º Texto depois da tabela.</p></body></html>")
	return b.String()
}

func buildCenteredDocument() string {
	var b strings.Builder
	b.WriteString(`<html><body><center>`)
	for _, label := range []string{"TÍTULO I", "CAPÍTULO I", "SEÇÃO I", "SUBSEÇÃO I"} {
		fmt.Fprintf(&b, "<p><b>%s</b></p>\n", label)
	}
	b.WriteString(`</center><div align="center"><p><b>TÍTULO II</b></p><p><b>CAPÍTULO II</b></p></div>`)
	b.WriteString(`<ul><li>I - primeiro inciso da lista;</li><li>II - segundo inciso da lista;</li></ul>`)
	b.WriteString(`<p>Art. 8º Texto final.</p></body></html>`)
	return b.String()
}

func classifyWhole(t *testing.T, doc string) []core.RawElement {
	t.Helper()
	blocks, err := extract.New().Blocks(doc)
	require.NoError(t, err)
	return classify.Classify(blocks, source)
}

func TestSplit_KeepsWrappersWhole(t *testing.T) {
	doc := buildTableDocument()

	chunks := Split(doc, 40)

	assert.Equal(t, doc, strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.Equal(t, strings.Count(c, "<table>"), strings.Count(c, "</table>"), "table split: %q", c)
	}
	assert.True(t, strings.HasSuffix(chunks[1], "</table>"))
}

func TestSplit_CenteredContainerIsWrapper(t *testing.T) {
	chunks := Split(`<div class="Center"><p>TÍTULO I</p><p>CAPÍTULO I</p></div><p>Art. 1º Texto.</p>`, 1)

	require.Len(t, chunks, 2)
	assert.Equal(t, `<div class="Center"><p>TÍTULO I</p><p>CAPÍTULO I</p></div>`, chunks[0])
}

func TestStream_MatchesUnchunkedPath(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"flat paragraphs", buildDocument()},
		{"table rows", buildTableDocument()},
		{"centered containers and lists", buildCenteredDocument()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: the one-pass classification of the document
			want := classifyWhole(t, tt.doc)
			require.NotEmpty(t, want)

			// When: streaming it in small chunks through one classifier
			got, err := Stream(context.Background(), tt.doc, Options{Size: 40}, extract.New(), classify.New(source))
			require.NoError(t, err)

			// Then: the output is identical
			assert.Equal(t, want, got)
		})
	}
}

func TestStream_TableRowsSurviveChunking(t *testing.T) {
	got, err := Stream(context.Background(), buildTableDocument(), Options{Size: 80}, extract.New(), classify.New(source))
	require.NoError(t, err)

	require.Len(t, got, 8)
	assert.Equal(t, "Art. 6º", got[6].Context.ArticleNumber)
	assert.Equal(t, "Art. 7º", got[7].Context.ArticleNumber)
}

func TestStream_ReportsBytesProcessed(t *testing.T) {
	doc := buildDocument()
	var done []int
	var totals []int

	_, err := Stream(context.Background(), doc, Options{
		Size: 80,
		Progress: func(d, total int) {
			done = append(done, d)
			totals = append(totals, total)
		},
	}, extract.New(), classify.New(source))
	require.NoError(t, err)

	require.Greater(t, len(done), 1)
	assert.Equal(t, len(Split(doc, 80)), len(done), "one call per chunk")
	for i := 1; i < len(done); i++ {
		assert.Greater(t, done[i], done[i-1])
	}
	assert.Equal(t, len(doc), done[len(done)-1])
	for _, total := range totals {
		assert.Equal(t, len(doc), total)
	}
}

func TestStream_WarnsOnceAboveMemoryCeiling(t *testing.T) {
	// Given: a ceiling every heap exceeds
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	// When: streaming several chunks
	_, err := Stream(context.Background(), buildDocument(), Options{
		Size:          80,
		MemoryCeiling: 1,
		Logger:        logger,
	}, extract.New(), classify.New(source))
	require.NoError(t, err)

	// Then: the warning is logged once and the run completes
	assert.Equal(t, 1, strings.Count(logs.String(), `"msg":"memory_ceiling_exceeded"`))
	assert.Contains(t, logs.String(), `"ceiling_bytes":1`)
}

func TestStream_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Stream(ctx, buildDocument(), Options{Size: 64}, extract.New(), classify.New(source))

	assert.ErrorIs(t, err, context.Canceled)
}
