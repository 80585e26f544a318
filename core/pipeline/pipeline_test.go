package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gaurav-prasanna/constpipe/core"
	"github.com/gaurav-prasanna/constpipe/core/chunk"
	"github.com/gaurav-prasanna/constpipe/core/extract"
	"github.com/gaurav-prasanna/constpipe/core/fetch"
	"github.com/gaurav-prasanna/constpipe/core/index"
	"github.com/gaurav-prasanna/constpipe/core/normalize"
	"github.com/gaurav-prasanna/constpipe/core/output"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><head><title>Constituição</title></head><body>
<p align="center"><b>TÍTULO I</b></p>
<p align="center"><b>DOS PRINCÍPIOS FUNDAMENTAIS</b></p>
<p>Art. 1º A República Federativa do Brasil, formada pela união indissolúvel dos Estados e Municípios e do Distrito Federal, constitui-se em Estado Democrático de Direito e tem como fundamentos:</p>
<p>I - a soberania;</p>
<p>II - a cidadania;</p>
<p>Parágrafo único. Todo o poder emana do povo.</p>
<p align="center"><b>TÍTULO II</b></p>
<p>Art. 5º Todos são iguais perante a lei, sem distinção de qualquer natureza.</p>
</body></html>`

var fixedNow = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newPipeline(engine index.Engine) *Pipeline {
	logger := quietLogger()
	return &Pipeline{
		Fetcher:   fetch.New(fetch.WithLogger(logger)),
		Extractor: extract.New(),
		Gateway:   index.NewGateway(engine, index.WithLogger(logger)),
		Logger:    logger,
		Now:       fixedNow,
	}
}

func TestRun_IngestsDocument(t *testing.T) {
	// Given: the document served over HTTP and an empty in-memory index
	srv := serve(t, http.StatusOK, page)
	engine := index.NewBleveEngine("", nil)
	defer engine.Close()
	p := newPipeline(engine)

	// When: running the pipeline
	report, err := p.Run(context.Background(), Options{
		Source:    srv.URL + "/constituicao.htm",
		IndexName: "constituicao",
		BatchSize: 3,
	})

	// Then: every document is built and indexed in three batches
	require.NoError(t, err)
	_, err = uuid.Parse(report.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "Constituição", report.Title)
	assert.Equal(t, 8, report.Elements)
	assert.Equal(t, 8, report.Documents)
	assert.Equal(t, 2, report.Kinds[core.KindArticle])
	assert.Equal(t, 2, report.Kinds[core.KindItem])
	assert.Equal(t, 3, report.Index.BatchesAttempted)
	assert.Equal(t, 8, report.Index.DocumentsSucceeded)
	assert.False(t, report.Index.Partial())
	assert.Equal(t, fixedNow(), report.StartedAt)

	count, err := engine.Count(context.Background(), "constituicao")
	require.NoError(t, err)
	assert.Equal(t, uint64(8), count)

	hits, err := engine.Search(context.Background(), "constituicao", "soberania", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, string(core.KindItem), hits[0].Kind)
}

func TestRun_IsIdempotent(t *testing.T) {
	srv := serve(t, http.StatusOK, page)
	engine := index.NewBleveEngine("", nil)
	defer engine.Close()
	p := newPipeline(engine)
	opts := Options{Source: srv.URL + "/cf.htm", IndexName: "constituicao", BatchSize: 100}

	first, err := p.Run(context.Background(), opts)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	count, err := engine.Count(context.Background(), "constituicao")
	require.NoError(t, err)
	assert.Equal(t, uint64(first.Documents), count, "a second run replaces, never duplicates")
}

func TestRun_FetchFailureIsFatal(t *testing.T) {
	// Given: a source that answers 404
	srv := serve(t, http.StatusNotFound, "not found")
	engine := index.NewBleveEngine("", nil)
	defer engine.Close()

	// When: running
	report, err := newPipeline(engine).Run(context.Background(), Options{Source: srv.URL, IndexName: "constituicao"})

	// Then: the run stops before the index is touched
	require.Error(t, err)
	assert.True(t, core.IsStage(err, core.StageFetch))
	assert.Nil(t, report)
	_, err = engine.RetrieveIndex(context.Background(), "constituicao")
	assert.Equal(t, index.KindNotFound, index.KindOf(err))
}

// brokenEngine fails every retrieval with a transport error.
type brokenEngine struct{ upserts int }

func (e *brokenEngine) RetrieveIndex(context.Context, string) (*index.Schema, error) {
	return nil, index.NewError(index.KindTransport, "constituicao", errors.New("connection refused"))
}

func (e *brokenEngine) CreateIndex(context.Context, index.Schema) error { return nil }

func (e *brokenEngine) UpsertBatch(context.Context, string, []index.Record, index.UpsertOptions) ([]index.DocResult, error) {
	e.upserts++
	return nil, nil
}

func (e *brokenEngine) Close() error { return nil }

func TestRun_SchemaFailureIsFatal(t *testing.T) {
	srv := serve(t, http.StatusOK, page)
	engine := &brokenEngine{}

	report, err := newPipeline(engine).Run(context.Background(), Options{Source: srv.URL, IndexName: "constituicao"})

	require.Error(t, err)
	assert.True(t, core.IsStage(err, core.StageSchema))
	require.NotNil(t, report)
	assert.Zero(t, report.Documents, "no document is built without an index")
	assert.Zero(t, engine.upserts)
}

func TestRun_DryRunSkipsIndex(t *testing.T) {
	srv := serve(t, http.StatusOK, page)
	p := newPipeline(&brokenEngine{})
	p.Gateway = nil

	report, err := p.Run(context.Background(), Options{Source: srv.URL, IndexName: "constituicao", DryRun: true})

	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 8, report.Documents)
	assert.Zero(t, report.Index.BatchesAttempted)
}

func TestDocuments_ChunkedMatchesWholeDocument(t *testing.T) {
	// Given: the same source processed whole and in small chunks
	srv := serve(t, http.StatusOK, page)
	p := newPipeline(index.NewBleveEngine("", nil))
	whole, err := p.Documents(context.Background(), Options{Source: srv.URL})
	require.NoError(t, err)

	var progress []int
	chunked, err := p.Documents(context.Background(), Options{
		Source:  srv.URL,
		Chunked: true,
		Chunk: chunk.Options{
			Size:     120,
			Progress: func(done, _ int) { progress = append(progress, done) },
		},
	})
	require.NoError(t, err)

	// Then: the documents are identical
	assert.Equal(t, whole.Documents, chunked.Documents)
	assert.Greater(t, len(progress), 1)
}

func TestRun_Snapshot(t *testing.T) {
	srv := serve(t, http.StatusOK, page)
	storage, err := output.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	p := newPipeline(nil)
	p.Gateway = nil
	p.Normalizer = normalize.New()
	p.Storage = storage

	report, err := p.Run(context.Background(), Options{Source: srv.URL + "/constituicao.htm", IndexName: "constituicao", DryRun: true, Snapshot: true})
	require.NoError(t, err)
	require.NotEmpty(t, report.Snapshot)

	data, err := os.ReadFile(report.Snapshot)
	require.NoError(t, err)
	assert.Contains(t, string(data), "TÍTULO I")
	assert.Contains(t, string(data), "Art. 5º Todos são iguais")
}
