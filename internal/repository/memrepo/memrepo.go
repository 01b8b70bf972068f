package memrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mrled/suns/dnsrenew/internal/model"
)

// MemoryRepository is an in-memory BlobRepository optionally backed by a JSON file
type MemoryRepository struct {
	mu       sync.RWMutex
	data     []byte
	filePath string
}

// NewMemoryRepository creates a new in-memory repository without persistence.
// Data is stored only in memory and will be lost when the process terminates.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// NewMemoryRepositoryWithPersistence creates a repository backed by a file.
// The file is read on every Load and rewritten on every Save.
func NewMemoryRepositoryWithPersistence(filePath string) (*MemoryRepository, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &MemoryRepository{filePath: filePath}, nil
}

// NewMemoryRepositoryFromBytes creates a non-persistent repository holding data
func NewMemoryRepositoryFromBytes(data []byte) *MemoryRepository {
	return &MemoryRepository{data: append([]byte(nil), data...)}
}

// Name implements model.BlobRepository
func (r *MemoryRepository) Name() string {
	if r.filePath == "" {
		return "memory"
	}
	return r.filePath
}

// Load implements model.BlobRepository
func (r *MemoryRepository) Load(ctx context.Context) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.filePath == "" {
		if r.data == nil {
			return nil, model.ErrBlobNotFound
		}
		return append([]byte(nil), r.data...), nil
	}

	data, err := os.ReadFile(r.filePath)
	if os.IsNotExist(err) {
		return nil, model.ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, model.ErrBlobNotFound
	}
	return data, nil
}

// Save implements model.BlobRepository. File writes go through a temporary
// file in the same directory and a rename, so readers never see half a document.
func (r *MemoryRepository) Save(ctx context.Context, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.filePath == "" {
		r.data = append([]byte(nil), data...)
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.filePath), filepath.Base(r.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), r.filePath); err != nil {
		return fmt.Errorf("replace %s: %w", r.filePath, err)
	}
	return nil
}
