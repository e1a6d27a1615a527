package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/demusis/rev-textos/internal/models"
)

// JSONStore keeps one <fileHash>.json per document under a data directory.
type JSONStore struct {
	dir    string
	logger *slog.Logger
}

func NewJSONStore(dir string, logger *slog.Logger) (*JSONStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory must be provided")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return &JSONStore{dir: dir, logger: logger}, nil
}

func (s *JSONStore) path(fileHash string) string {
	return filepath.Join(s.dir, fileHash+".json")
}

// Save writes the document atomically: a temp file is renamed over the
// destination so readers never see a partial write.
func (s *JSONStore) Save(ctx context.Context, doc *models.Document) error {
	if doc == nil || doc.FileHash == "" {
		return fmt.Errorf("document with a file hash is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.FileHash, err)
	}

	tmp, err := os.CreateTemp(s.dir, "doc-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write document %s: %w", doc.FileHash, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(doc.FileHash)); err != nil {
		return fmt.Errorf("finalize document %s: %w", doc.FileHash, err)
	}

	s.logger.Info("document persisted", "fileHash", doc.FileHash, "bytes", len(raw))
	return nil
}

func (s *JSONStore) LoadByHash(ctx context.Context, fileHash string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path(fileHash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read document %s: %w", fileHash, err)
	}
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", fileHash, err)
	}
	return &doc, nil
}

func (s *JSONStore) Close() error { return nil }
