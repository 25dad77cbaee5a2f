package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ragserver/internal/domain"
	"ragserver/internal/store"
)

// fakeEmbedder maps known texts to fixed vectors; everything else gets
// the fallback vector.
type fakeEmbedder struct {
	vectors  map[string][]float64
	fallback []float64
	err      error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

type fakeAnswerer struct {
	answer    string
	err       error
	gotChunks []string
}

func (f *fakeAnswerer) Answer(ctx context.Context, question string, contextChunks []string) (string, error) {
	f.gotChunks = contextChunks
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newTestService(t *testing.T, emb domain.Embedder, ans domain.Answerer) (*RetrievalService, *store.ChunkStore) {
	t.Helper()
	st, err := store.New(store.NewFileSnapshot(filepath.Join(t.TempDir(), "storage.json")), zap.NewNop())
	require.NoError(t, err)
	return NewRetrievalService(emb, ans, st, nil, 0, zap.NewNop()), st
}

func TestIngestStoresAllChunksUnderOneDocID(t *testing.T) {
	emb := &fakeEmbedder{fallback: []float64{1, 0}}
	svc, st := newTestService(t, emb, &fakeAnswerer{})

	// long enough to produce several 500-char chunks
	text := strings.Repeat("some sentence about gophers. ", 60)
	doc, err := svc.Ingest(context.Background(), "gophers.txt", text, "sess")
	require.NoError(t, err)

	assert.Equal(t, "gophers.txt", doc.Filename)
	assert.Greater(t, doc.ChunkCount, 1)
	assert.NotEmpty(t, doc.ID)

	summaries := st.List("sess")
	require.Len(t, summaries, 1)
	assert.Equal(t, doc.ID, summaries[0].DocID)
	assert.Equal(t, doc.ChunkCount, summaries[0].ChunkCount)

	// the whole upload is deletable by its document id
	removed, err := st.DeleteDocument(doc.ID, "sess")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, st.List("sess"))
}

func TestIngestRejectsEmptyDocument(t *testing.T) {
	svc, _ := newTestService(t, &fakeEmbedder{fallback: []float64{1}}, &fakeAnswerer{})

	_, err := svc.Ingest(context.Background(), "empty.txt", " \x00 \n ", "sess")
	assert.Error(t, err)
}

func TestIngestPropagatesEmbedderFailure(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("rate limited")}
	svc, st := newTestService(t, emb, &fakeAnswerer{})

	_, err := svc.Ingest(context.Background(), "a.txt", "some text", "sess")
	require.Error(t, err)
	assert.Empty(t, st.List("sess"))
}

func TestAnswerQuestion(t *testing.T) {
	emb := &fakeEmbedder{
		vectors:  map[string][]float64{"what is x?": {1, 0}},
		fallback: []float64{1, 0},
	}
	ans := &fakeAnswerer{answer: "x is a thing"}
	svc, st := newTestService(t, emb, ans)

	_, err := st.Add("x is a thing entirely", []float64{1, 0}, "x.txt", "", "sess")
	require.NoError(t, err)
	_, err = st.Add("unrelated", []float64{0, 1}, "y.txt", "", "sess")
	require.NoError(t, err)

	answer, err := svc.AnswerQuestion(context.Background(), "what is x?", "sess", 1)
	require.NoError(t, err)
	assert.Equal(t, "x is a thing", answer.Text)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "x.txt", answer.Citations[0].SourceFile)
	assert.Equal(t, 0, answer.Citations[0].ChunkID)
	assert.InDelta(t, 1.0, answer.Citations[0].Score, 1e-9)

	// the retrieved chunk text was handed to the answerer in rank order
	assert.Equal(t, []string{"x is a thing entirely"}, ans.gotChunks)
}

func TestAnswerQuestionNoResults(t *testing.T) {
	emb := &fakeEmbedder{fallback: []float64{1, 0}}
	svc, _ := newTestService(t, emb, &fakeAnswerer{answer: "unused"})

	answer, err := svc.AnswerQuestion(context.Background(), "anything?", "sess", 3)
	require.NoError(t, err)
	assert.Equal(t, noResultsAnswer, answer.Text)
	assert.Empty(t, answer.Citations)
}

func TestAnswerQuestionDegradesOnGenerationFailure(t *testing.T) {
	emb := &fakeEmbedder{fallback: []float64{1, 0}}
	ans := &fakeAnswerer{err: errors.New("model overloaded")}
	svc, st := newTestService(t, emb, ans)

	_, err := st.Add("relevant text", []float64{1, 0}, "a.txt", "", "sess")
	require.NoError(t, err)

	answer, err := svc.AnswerQuestion(context.Background(), "q?", "sess", 3)
	require.NoError(t, err)
	assert.Equal(t, degradedAnswer, answer.Text)
	// retrieval succeeded, so the citations are still returned
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "a.txt", answer.Citations[0].SourceFile)
}

func TestAnswerQuestionPropagatesEmbedFailure(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("boom")}
	svc, _ := newTestService(t, emb, &fakeAnswerer{})

	_, err := svc.AnswerQuestion(context.Background(), "q?", "sess", 3)
	assert.Error(t, err)
}

func TestSnippetTruncation(t *testing.T) {
	short := strings.Repeat("a", snippetLimit)
	assert.Equal(t, short, snippet(short))

	long := strings.Repeat("b", snippetLimit+1)
	got := snippet(long)
	assert.Len(t, got, snippetLimit+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSnippetTruncatesOnRuneBoundary(t *testing.T) {
	// a multibyte rune straddles the limit when counted in bytes
	text := strings.Repeat("a", snippetLimit-1) + "éé"
	got := snippet(text)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", snippetLimit-1)+"é...", got)

	// at most snippetLimit characters survive before the marker
	wide := strings.Repeat("€", snippetLimit+10)
	got = snippet(wide)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("€", snippetLimit)+"...", got)
}

func TestAnswerQuestionDefaultK(t *testing.T) {
	emb := &fakeEmbedder{fallback: []float64{1, 0}}
	svc, st := newTestService(t, emb, &fakeAnswerer{answer: "ok"})

	for i := 0; i < 5; i++ {
		_, err := st.Add("chunk", []float64{1, 0}, "a.txt", "", "sess")
		require.NoError(t, err)
	}

	answer, err := svc.AnswerQuestion(context.Background(), "q?", "sess", 0)
	require.NoError(t, err)
	assert.Len(t, answer.Citations, defaultTopK)
}

func TestAnswerQuestionConfiguredDefaultK(t *testing.T) {
	emb := &fakeEmbedder{fallback: []float64{1, 0}}
	st, err := store.New(store.NewFileSnapshot(filepath.Join(t.TempDir(), "storage.json")), zap.NewNop())
	require.NoError(t, err)
	svc := NewRetrievalService(emb, &fakeAnswerer{answer: "ok"}, st, nil, 5, zap.NewNop())

	for i := 0; i < 7; i++ {
		_, err := st.Add("chunk", []float64{1, 0}, "a.txt", "", "sess")
		require.NoError(t, err)
	}

	answer, err := svc.AnswerQuestion(context.Background(), "q?", "sess", 0)
	require.NoError(t, err)
	assert.Len(t, answer.Citations, 5)

	// an explicit k still wins over the configured default
	answer, err = svc.AnswerQuestion(context.Background(), "q?", "sess", 2)
	require.NoError(t, err)
	assert.Len(t, answer.Citations, 2)
}
