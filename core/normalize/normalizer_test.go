package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownNormalizer_Normalize(t *testing.T) {
	// Given: a page with noise around the constitutional text
	src := `<html><head><title>CF</title><script>track()</script></head><body>
<p align="center"><b>TÍTULO I</b></p>
<img src="brasao.gif">


<p>Art. 1º A República Federativa do Brasil <a href="emc.htm">(EC 1)</a></p>
<form><input name="q"></form>
</body></html>`

	// When: normalizing it
	md, err := New().Normalize(src)
	require.NoError(t, err)

	// Then: text and links survive, noise does not
	assert.Contains(t, md, "**TÍTULO I**")
	assert.Contains(t, md, "Art. 1º A República Federativa do Brasil")
	assert.Contains(t, md, "[(EC 1)](emc.htm)")
	assert.NotContains(t, md, "track()")
	assert.NotContains(t, md, "brasao.gif")
	assert.NotContains(t, md, "\n\n\n")
}

func TestMarkdownNormalizer_Fragment(t *testing.T) {
	md, err := New().Normalize("<p>Parágrafo único. Texto.</p>")
	require.NoError(t, err)
	assert.Equal(t, "Parágrafo único. Texto.\n", md)
}
