package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps collections in process memory. It is the default dev
// backend and the fake used by handler and session tests.
type MemoryStore struct {
	mu   sync.Mutex
	cols map[string][]Document
	hub  *hub
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cols: make(map[string][]Document),
		hub:  newHub(),
	}
}

func (s *MemoryStore) Create(_ context.Context, path string, fields map[string]any) (Document, error) {
	doc := Document{ID: uuid.NewString(), Fields: copyFields(fields)}

	s.mu.Lock()
	s.cols[path] = append(s.cols[path], doc)
	s.mu.Unlock()

	s.Refresh(path)
	return doc, nil
}

func (s *MemoryStore) UpdateByID(_ context.Context, path, id string, fields map[string]any) error {
	s.mu.Lock()
	found := false
	for i, doc := range s.cols[path] {
		if doc.ID == id {
			s.cols[path][i].Fields = copyFields(fields)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return fmt.Errorf("update %s/%s: %w", path, id, ErrNotFound)
	}
	s.Refresh(path)
	return nil
}

func (s *MemoryStore) DeleteByID(_ context.Context, path, id string) error {
	s.mu.Lock()
	docs := s.cols[path]
	found := false
	kept := docs[:0]
	for _, doc := range docs {
		if doc.ID == id {
			found = true
			continue
		}
		kept = append(kept, doc)
	}
	s.cols[path] = kept
	s.mu.Unlock()

	if !found {
		return fmt.Errorf("delete %s/%s: %w", path, id, ErrNotFound)
	}
	s.Refresh(path)
	return nil
}

func (s *MemoryStore) SubscribeCollection(path string, fn func([]Document)) (func(), error) {
	unsubscribe := s.hub.subscribe(path, fn)
	docs, _ := s.load(path)
	fn(docs)
	return unsubscribe, nil
}

// Refresh implements Refresher.
func (s *MemoryStore) Refresh(path string) {
	s.hub.refresh(path, s.load)
}

func (s *MemoryStore) load(path string) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := make([]Document, len(s.cols[path]))
	for i, doc := range s.cols[path] {
		docs[i] = Document{ID: doc.ID, Fields: copyFields(doc.Fields)}
	}
	return docs, nil
}

func copyFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
