package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"costtracker/internal/storage"
)

// SQLiteStore persists documents through the shared SQLite repository.
type SQLiteStore struct {
	repo *storage.SQLiteRepository
	hub  *hub
}

var _ Store = (*SQLiteStore)(nil)
var _ Refresher = (*SQLiteStore)(nil)

func NewSQLiteStore(repo *storage.SQLiteRepository) *SQLiteStore {
	return &SQLiteStore{repo: repo, hub: newHub()}
}

func (s *SQLiteStore) Create(ctx context.Context, path string, fields map[string]any) (Document, error) {
	blob, err := json.Marshal(fields)
	if err != nil {
		return Document{}, fmt.Errorf("marshal fields: %w", err)
	}

	id := uuid.NewString()
	if err := s.repo.InsertDocument(ctx, path, id, blob); err != nil {
		return Document{}, fmt.Errorf("create document in %s: %w", path, err)
	}

	slog.InfoContext(ctx, "Document created", "collection", path, "doc_id", id)
	s.Refresh(path)
	return Document{ID: id, Fields: copyFields(fields)}, nil
}

func (s *SQLiteStore) UpdateByID(ctx context.Context, path, id string, fields map[string]any) error {
	blob, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	if err := s.repo.UpdateDocument(ctx, path, id, blob); err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			return fmt.Errorf("update document %s/%s: %w", path, id, ErrNotFound)
		}
		return fmt.Errorf("update document %s/%s: %w", path, id, err)
	}

	slog.InfoContext(ctx, "Document updated", "collection", path, "doc_id", id)
	s.Refresh(path)
	return nil
}

func (s *SQLiteStore) DeleteByID(ctx context.Context, path, id string) error {
	if err := s.repo.DeleteDocument(ctx, path, id); err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			return fmt.Errorf("delete document %s/%s: %w", path, id, ErrNotFound)
		}
		return fmt.Errorf("delete document %s/%s: %w", path, id, err)
	}

	slog.InfoContext(ctx, "Document deleted", "collection", path, "doc_id", id)
	s.Refresh(path)
	return nil
}

func (s *SQLiteStore) SubscribeCollection(path string, fn func([]Document)) (func(), error) {
	docs, err := s.load(path)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot of %s: %w", path, err)
	}
	unsubscribe := s.hub.subscribe(path, fn)
	fn(docs)
	return unsubscribe, nil
}

// Refresh implements Refresher.
func (s *SQLiteStore) Refresh(path string) {
	s.hub.refresh(path, s.load)
}

func (s *SQLiteStore) load(path string) ([]Document, error) {
	recs, err := s.repo.ListDocuments(context.Background(), path)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(recs))
	for _, rec := range recs {
		fields := make(map[string]any)
		if err := json.Unmarshal(rec.Fields, &fields); err != nil {
			slog.Warn("Skipping undecodable document", "collection", path, "doc_id", rec.ID, "error", err)
			continue
		}
		docs = append(docs, Document{ID: rec.ID, Fields: fields})
	}
	return docs, nil
}
