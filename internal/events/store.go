package events

import (
	"context"
	"log/slog"

	"costtracker/internal/docstore"
)

// PublishingStore decorates a document store so every successful write is
// announced on the bridge. Publish failures are logged and swallowed: the
// write already landed, and other instances will catch up on their next
// refresh.
type PublishingStore struct {
	docstore.Store
	bridge *Bridge
}

func NewPublishingStore(inner docstore.Store, bridge *Bridge) *PublishingStore {
	return &PublishingStore{Store: inner, bridge: bridge}
}

func (s *PublishingStore) Create(ctx context.Context, path string, fields map[string]any) (docstore.Document, error) {
	doc, err := s.Store.Create(ctx, path, fields)
	if err == nil {
		s.announce(ctx, path)
	}
	return doc, err
}

func (s *PublishingStore) UpdateByID(ctx context.Context, path, id string, fields map[string]any) error {
	err := s.Store.UpdateByID(ctx, path, id, fields)
	if err == nil {
		s.announce(ctx, path)
	}
	return err
}

func (s *PublishingStore) DeleteByID(ctx context.Context, path, id string) error {
	err := s.Store.DeleteByID(ctx, path, id)
	if err == nil {
		s.announce(ctx, path)
	}
	return err
}

func (s *PublishingStore) announce(ctx context.Context, path string) {
	if err := s.bridge.PublishChange(ctx, path); err != nil {
		slog.ErrorContext(ctx, "Failed to publish collection change", "path", path, "error", err)
	}
}
