package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gaurav-prasanna/constpipe/core/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() retry.Config {
	return retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestHTTPFetcher_Fetch_DecodesLatin1(t *testing.T) {
	// Given: a server answering in ISO-8859-1, as the official gazette does
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "TÍTULO" with Í encoded as 0xCD
		_, _ = w.Write([]byte("<p>T\xcdTULO I</p>"))
	}))
	defer srv.Close()

	// When
	res, err := New(WithRetry(fastRetry())).Fetch(context.Background(), srv.URL)

	// Then
	require.NoError(t, err)
	assert.Equal(t, "<p>TÍTULO I</p>", res.HTML)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestHTTPFetcher_Fetch_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "<p>ok</p>")
	}))
	defer srv.Close()

	res, err := New(WithRetry(fastRetry())).Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", res.HTML)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPFetcher_Fetch_NotFoundIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(WithRetry(fastRetry())).Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPFetcher_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	f := New(WithTimeout(20*time.Millisecond), WithRetry(retry.Config{}))
	_, err := f.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
}

func TestFileFetcher_ReadsPlainPathAndFileURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cf.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>Art. 1º</p>"), 0o644))

	for _, locator := range []string{path, "file://" + path} {
		res, err := ForLocator(locator, New()).Fetch(context.Background(), locator)
		require.NoError(t, err)
		assert.Equal(t, "<p>Art. 1º</p>", res.HTML)
	}
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://www.planalto.gov.br/ccivil_03/constituicao/constituicao.htm"))
	assert.NoError(t, ValidateURL("./testdata/cf.html"))
	assert.Error(t, ValidateURL(""))
	assert.Error(t, ValidateURL("https://"))
}

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"HTTPS://WWW.Planalto.gov.br/ccivil_03/constituicao/constituicao.htm#art5": "https://www.planalto.gov.br/ccivil_03/constituicao/constituicao.htm",
		"https://example.com/docs/":  "https://example.com/docs",
		"https://example.com/":       "https://example.com/",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeURL(in), in)
	}
}

func TestResolveURL(t *testing.T) {
	base := "https://www.planalto.gov.br/ccivil_03/constituicao/constituicao.htm"
	tests := []struct {
		name, href, base, want string
	}{
		{"relative", "../Emendas/Emc/emc01.htm", base, "https://www.planalto.gov.br/ccivil_03/Emendas/Emc/emc01.htm"},
		{"fragment stripped", "emendas.htm#art1", base, "https://www.planalto.gov.br/ccivil_03/constituicao/emendas.htm"},
		{"absolute", "https://www.camara.leg.br/", base, "https://www.camara.leg.br/"},
		{"in-page", "#art5", base, ""},
		{"mailto", "mailto:contato@planalto.gov.br", base, ""},
		{"javascript", "javascript:void(0)", base, ""},
		{"local source", "emc01.htm", "./testdata/cf.html", "emc01.htm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveURL(tt.href, tt.base))
		})
	}
}
