package domain

import "context"

// ChunkRecord is one embedded unit of text owned by the chunk store.
// IDs are assigned by the store at insertion time and never reassigned.
type ChunkRecord struct {
	ID        int       `json:"id"`
	DocID     string    `json:"doc_id"`
	Text      string    `json:"text"`
	Vector    []float64 `json:"vector"`
	Source    string    `json:"source"`
	SessionID string    `json:"session_id"`
}

// SearchResult pairs a stored chunk with its similarity score for a query.
type SearchResult struct {
	Record ChunkRecord
	Score  float64
}

// DocumentSummary aggregates a session's chunks by their source label.
type DocumentSummary struct {
	DocID      string `json:"id"`
	Source     string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// Document describes one completed upload.
type Document struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	UploadDate string `json:"upload_date"`
	ChunkCount int    `json:"chunk_count"`
}

// Citation points a generated answer back at one retrieved chunk.
type Citation struct {
	SourceFile  string  `json:"source_file"`
	TextSnippet string  `json:"text_snippet"`
	ChunkID     int     `json:"chunk_id"`
	Score       float64 `json:"score"`
}

// Answer is the result of a question: generated text plus citations.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// Embedder converts free text into a fixed-dimension vector representation.
// Implementations apply their own retry policy and may still fail.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Answerer generates an answer to a question using only the provided
// context chunks, in the order given.
type Answerer interface {
	Answer(ctx context.Context, question string, contextChunks []string) (string, error)
}

// Chunker splits cleaned text into overlapping retrieval units.
type Chunker interface {
	Chunk(text string) []string
}

// ChunkStore is the session-partitioned, durably persisted collection of
// chunk records.
type ChunkStore interface {
	Add(text string, vector []float64, source, docID, sessionID string) (ChunkRecord, error)
	Search(queryVector []float64, sessionID string, k int) []SearchResult
	DeleteDocument(key, sessionID string) (bool, error)
	List(sessionID string) []DocumentSummary
}
