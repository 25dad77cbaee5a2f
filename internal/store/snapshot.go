package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ragserver/internal/domain"
)

// ErrCorruptSnapshot marks a snapshot that exists but cannot be decoded.
// Callers treat it as recoverable and start from an empty collection.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Snapshotter persists the whole chunk collection as one durable snapshot.
type Snapshotter interface {
	// Save overwrites any previous snapshot with the full collection.
	Save(records []domain.ChunkRecord) error
	// Load reads the snapshot. A missing snapshot yields (nil, nil); a
	// present but undecodable one yields an error wrapping ErrCorruptSnapshot.
	Load() ([]domain.ChunkRecord, error)
}

// FileSnapshot stores the collection as a JSON array in a single file.
// Writes go to a temp file in the same directory and are renamed over the
// snapshot, so readers never observe a partial write.
type FileSnapshot struct {
	path string
}

func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{path: path}
}

func (f *FileSnapshot) Save(records []domain.ChunkRecord) error {
	if records == nil {
		records = []domain.ChunkRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (f *FileSnapshot) Load() ([]domain.ChunkRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var records []domain.ChunkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return records, nil
}
