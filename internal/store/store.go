// Package store provides durable persistence for the board document. A
// Store holds exactly one JSON-serializable snapshot per board key; saves
// are idempotent whole-document writes and loads hand back the latest
// snapshot. The backing technology (flat file, SQLite, PostgreSQL) is
// substitutable behind the same interface.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/funneldesk/funnel-api/internal/config"
	"github.com/funneldesk/funnel-api/internal/domain"
	"go.uber.org/zap"
)

var (
	// ErrNotFound means no document has ever been saved under the board key
	ErrNotFound = errors.New("document not found")

	// ErrCorrupt means a document exists but could not be decoded into the
	// expected shape. Callers fall back to seed data rather than crashing.
	ErrCorrupt = errors.New("document corrupt")
)

// Store loads and saves the board document
type Store interface {
	Load(ctx context.Context) (*domain.Document, error)
	Save(ctx context.Context, doc *domain.Document) error
	Close() error
}

// HealthChecker is implemented by stores that can probe their backend.
// The file store has nothing to probe and does not implement it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewStore creates a store instance based on configuration.
// File mode keeps the document in a single JSON file; sqlite and postgres
// modes keep it in a one-row document table.
func NewStore(cfg *config.StoreConfig, boardKey string, logger *zap.Logger) (Store, error) {
	switch cfg.Mode {
	case "file":
		return NewFileStore(cfg.FilePath, logger)
	case "sqlite", "postgres":
		return NewDatabaseStore(cfg, boardKey, logger)
	default:
		return nil, fmt.Errorf("unsupported store mode: %s", cfg.Mode)
	}
}

// DecodeDocument parses and shape-checks a persisted payload. Any decode
// failure or structural violation maps to ErrCorrupt so the caller can
// fall back to seed data.
func DecodeDocument(data []byte) (*domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := validateDocument(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &doc, nil
}

// EncodeDocument serializes a document for persistence
func EncodeDocument(doc *domain.Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// validateDocument rejects payloads that parsed as JSON but do not carry a
// usable board snapshot.
func validateDocument(doc *domain.Document) error {
	if len(doc.Stages) == 0 {
		return errors.New("no stages")
	}
	stageKeys := make(map[string]bool, len(doc.Stages))
	for _, s := range doc.Stages {
		if s.Key == "" {
			return errors.New("stage with empty key")
		}
		if stageKeys[s.Key] {
			return fmt.Errorf("duplicate stage key %q", s.Key)
		}
		stageKeys[s.Key] = true
	}
	seen := make(map[string]bool, len(doc.Leads))
	for _, l := range doc.Leads {
		if l.ID.String() == "00000000-0000-0000-0000-000000000000" {
			return errors.New("lead with zero id")
		}
		if seen[l.ID.String()] {
			return fmt.Errorf("duplicate lead id %s", l.ID)
		}
		seen[l.ID.String()] = true
		if l.Name == "" {
			return fmt.Errorf("lead %s has empty name", l.ID)
		}
	}
	return nil
}
