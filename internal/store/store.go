// Package store persists processed documents so a rerun on the same file can
// be detected and inspected later. Two backends are provided: a local JSON
// directory and Firestore.
package store

import (
	"context"
	"errors"

	"github.com/demusis/rev-textos/internal/models"
)

// ErrNotFound reports that no document exists for the requested hash.
var ErrNotFound = errors.New("document not found")

// Store saves and retrieves documents keyed by their content hash.
type Store interface {
	Save(ctx context.Context, doc *models.Document) error
	LoadByHash(ctx context.Context, fileHash string) (*models.Document, error)
	Close() error
}
