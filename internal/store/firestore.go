package store

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"

	"github.com/demusis/rev-textos/internal/models"
)

const defaultCollection = "revisoes"

// FirestoreStore persists documents in a Firestore collection, one document
// per file hash.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

func NewFirestoreStore(ctx context.Context, projectID, collection string, logger *slog.Logger) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore store")
	}
	if collection == "" {
		collection = defaultCollection
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &FirestoreStore{client: client, collection: collection, logger: logger}, nil
}

func (s *FirestoreStore) Save(ctx context.Context, doc *models.Document) error {
	if doc == nil || doc.FileHash == "" {
		return fmt.Errorf("document with a file hash is required")
	}
	if _, err := s.client.Collection(s.collection).Doc(doc.FileHash).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to persist document %s: %w", doc.FileHash, err)
	}
	s.logger.Info("document persisted", "fileHash", doc.FileHash, "collection", s.collection)
	return nil
}

func (s *FirestoreStore) LoadByHash(ctx context.Context, fileHash string) (*models.Document, error) {
	docs, err := s.client.Collection(s.collection).
		Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query document %s: %w", fileHash, err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	var doc models.Document
	if err := docs[0].DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", fileHash, err)
	}
	return &doc, nil
}

func (s *FirestoreStore) Close() error { return s.client.Close() }
