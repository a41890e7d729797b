package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/funneldesk/funnel-api/internal/domain"
	"go.uber.org/zap"
)

// FileStore persists the document as a single JSON file. Writes go through
// a temp file and rename so a crash mid-save never leaves a half-written
// document behind.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a file-backed store, creating the parent directory
// if needed.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{path: path, logger: logger}, nil
}

// Load reads and decodes the document file
func (s *FileStore) Load(ctx context.Context) (*domain.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	doc, err := DecodeDocument(data)
	if err != nil {
		s.logger.Warn("stored document is corrupt",
			zap.String("path", s.path),
			zap.Error(err))
		return nil, err
	}
	return doc, nil
}

// Save atomically replaces the document file with the given snapshot
func (s *FileStore) Save(ctx context.Context, doc *domain.Document) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}

// Close is a no-op for file stores
func (s *FileStore) Close() error {
	return nil
}
