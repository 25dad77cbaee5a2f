// Package service orchestrates the retrieval pipeline: ingest (clean,
// chunk, embed, store) and question answering (embed, search, generate).
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ragserver/internal/chunker"
	"ragserver/internal/domain"
)

const (
	noResultsAnswer = "No relevant documents found."
	degradedAnswer  = "I encountered an error generating the answer."

	snippetLimit = 200
	defaultTopK  = 3
)

// RetrievalService composes the embedder, chunk store and answerer.
// Embedding and answer generation are slow external calls and are never
// made while the store is locked; the store serializes itself.
type RetrievalService struct {
	embedder domain.Embedder
	answerer domain.Answerer
	store    domain.ChunkStore
	chunks   domain.Chunker
	defaultK int
	logger   *zap.Logger
}

// NewRetrievalService wires the pipeline. defaultK bounds retrieval when
// a caller passes k <= 0; zero falls back to 3.
func NewRetrievalService(embedder domain.Embedder, answerer domain.Answerer, store domain.ChunkStore, chunks domain.Chunker, defaultK int, logger *zap.Logger) *RetrievalService {
	if chunks == nil {
		chunks = chunker.NewWindowChunker(500, 50)
	}
	if defaultK <= 0 {
		defaultK = defaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrievalService{embedder: embedder, answerer: answerer, store: store, chunks: chunks, defaultK: defaultK, logger: logger}
}

// Ingest cleans and chunks the text, embeds every chunk and stores each
// one under a freshly generated document id. A chunk whose embedding or
// persistence fails aborts the upload with that chunk's error.
func (s *RetrievalService) Ingest(ctx context.Context, filename, text, sessionID string) (domain.Document, error) {
	cleaned := chunker.CleanText(text)
	if cleaned == "" {
		return domain.Document{}, fmt.Errorf("document %q is empty", filename)
	}
	pieces := s.chunks.Chunk(cleaned)
	docID := uuid.NewString()

	for i, piece := range pieces {
		vector, err := s.embedder.Embed(ctx, piece)
		if err != nil {
			return domain.Document{}, fmt.Errorf("embed chunk %d of %q: %w", i, filename, err)
		}
		if _, err := s.store.Add(piece, vector, filename, docID, sessionID); err != nil {
			return domain.Document{}, fmt.Errorf("store chunk %d of %q: %w", i, filename, err)
		}
	}

	s.logger.Info("document ingested",
		zap.String("doc_id", docID),
		zap.String("filename", filename),
		zap.Int("chunks", len(pieces)),
	)
	return domain.Document{
		ID:         docID,
		Filename:   filename,
		UploadDate: time.Now().Format("2006-01-02 15:04:05"),
		ChunkCount: len(pieces),
	}, nil
}

// AnswerQuestion embeds the question, retrieves the session's top-k most
// similar chunks and asks the answerer to respond using only those.
// Retrieval and generation fail independently: an empty retrieval yields
// a fixed "nothing found" answer, and a generation failure yields a
// degraded answer while the citations from retrieval are still returned.
func (s *RetrievalService) AnswerQuestion(ctx context.Context, question, sessionID string, k int) (domain.Answer, error) {
	if k <= 0 {
		k = s.defaultK
	}
	queryVector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("embed question: %w", err)
	}

	results := s.store.Search(queryVector, sessionID, k)
	if len(results) == 0 {
		return domain.Answer{Text: noResultsAnswer, Citations: []domain.Citation{}}, nil
	}

	contextChunks := make([]string, len(results))
	citations := make([]domain.Citation, len(results))
	for i, res := range results {
		contextChunks[i] = res.Record.Text
		citations[i] = domain.Citation{
			SourceFile:  res.Record.Source,
			TextSnippet: snippet(res.Record.Text),
			ChunkID:     res.Record.ID,
			Score:       res.Score,
		}
	}

	text, err := s.answerer.Answer(ctx, question, contextChunks)
	if err != nil {
		s.logger.Error("answer generation failed, degrading", zap.Error(err))
		return domain.Answer{Text: degradedAnswer, Citations: citations}, nil
	}
	return domain.Answer{Text: text, Citations: citations}, nil
}

// snippet bounds a citation preview to snippetLimit characters, marking
// truncation. The cut is made in runes so a multibyte character is never
// split.
func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLimit {
		return text
	}
	return string(runes[:snippetLimit]) + "..."
}
