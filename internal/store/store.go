// Package store owns the session-partitioned collection of chunk records
// and keeps it write-through consistent with a durable snapshot.
package store

import (
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"ragserver/internal/domain"
	"ragserver/internal/similarity"
)

// ChunkStore is the authoritative in-memory chunk collection. Every
// mutation persists the full collection before returning, and every
// operation holds the store lock for its whole read-modify-persist span.
type ChunkStore struct {
	mu       sync.Mutex
	records  []domain.ChunkRecord
	snapshot Snapshotter
	logger   *zap.Logger
}

// New creates a store backed by the given snapshotter and loads any
// existing snapshot. A missing snapshot starts the store empty; a corrupt
// one is logged and also starts the store empty.
func New(snapshot Snapshotter, logger *zap.Logger) (*ChunkStore, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("snapshotter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ChunkStore{snapshot: snapshot, logger: logger}
	records, err := snapshot.Load()
	if err != nil {
		logger.Warn("failed to load snapshot, starting empty", zap.Error(err))
		records = nil
	}
	s.records = records
	logger.Info("chunk store ready", zap.Int("records", len(records)))
	return s, nil
}

// Add appends one chunk record and persists the collection. The record's
// id is the collection size at insertion time. An empty docID defaults to
// the record's own id rendered as a string. On persistence failure the
// append is rolled back and the error returned.
func (s *ChunkStore) Add(text string, vector []float64, source, docID, sessionID string) (domain.ChunkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := domain.ChunkRecord{
		ID:        len(s.records),
		DocID:     docID,
		Text:      text,
		Vector:    vector,
		Source:    source,
		SessionID: sessionID,
	}
	if rec.DocID == "" {
		rec.DocID = strconv.Itoa(rec.ID)
	}
	s.records = append(s.records, rec)
	if err := s.snapshot.Save(s.records); err != nil {
		s.records = s.records[:len(s.records)-1]
		return domain.ChunkRecord{}, fmt.Errorf("persist chunk: %w", err)
	}
	return rec, nil
}

// Search returns the k stored chunks most similar to the query vector,
// restricted to records whose session id matches exactly. A degenerate
// query, an unknown session or k <= 0 all yield an empty result.
func (s *ChunkStore) Search(queryVector []float64, sessionID string, k int) []domain.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []domain.ChunkRecord
	for _, rec := range s.records {
		if rec.SessionID == sessionID {
			candidates = append(candidates, rec)
		}
	}
	return similarity.Rank(queryVector, candidates, k)
}

// DeleteDocument removes every record of the session whose document id
// equals key, persisting when anything was removed. It reports whether
// any record matched; persistence failure rolls the removal back.
func (s *ChunkStore) DeleteDocument(key, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]domain.ChunkRecord, 0, len(s.records))
	for _, rec := range s.records {
		if rec.SessionID == sessionID && rec.DocID == key {
			continue
		}
		kept = append(kept, rec)
	}
	if len(kept) == len(s.records) {
		return false, nil
	}
	prev := s.records
	s.records = kept
	if err := s.snapshot.Save(s.records); err != nil {
		s.records = prev
		return false, fmt.Errorf("persist delete: %w", err)
	}
	return true, nil
}

// List summarizes the session's records grouped by source, one summary
// per distinct source in order of first occurrence. Each summary carries
// the document id of the source's first chunk.
func (s *ChunkStore) List(sessionID string) []domain.DocumentSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := make(map[string]int)
	var summaries []domain.DocumentSummary
	for _, rec := range s.records {
		if rec.SessionID != sessionID {
			continue
		}
		i, ok := index[rec.Source]
		if !ok {
			i = len(summaries)
			index[rec.Source] = i
			summaries = append(summaries, domain.DocumentSummary{DocID: rec.DocID, Source: rec.Source})
		}
		summaries[i].ChunkCount++
	}
	return summaries
}

// Len reports the total number of stored records across all sessions.
func (s *ChunkStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
