// Package store mirrors one remote collection in memory. Mutations round-trip
// through the document store; the mirror is reconciled only by snapshot
// ingestion from the live-query subscription, plus the single local merge a
// settled mutation is allowed to make.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"costtracker/internal/docstore"
)

// ErrOperationInFlight rejects a mutation while another one on the same
// store is still pending. One guard covers add, update, and remove: the
// alternative, a shared loading flag that every operation toggles, lets two
// in-flight operations corrupt each other's state.
var ErrOperationInFlight = errors.New("another operation is already in flight")

// Codec maps between an entity and its document representation.
type Codec[T any] struct {
	Encode func(T) map[string]any
	Decode func(docstore.Document) T
	ID     func(T) string
}

// EntityStore mirrors the collection at Path.
type EntityStore[T any] struct {
	docs  docstore.Store
	path  string
	codec Codec[T]

	mu       sync.Mutex
	entities []T
	inFlight bool
	loading  bool
	err      error

	// onChange, when set, fires after every change to the mirrored
	// collection. The session uses it to notify the rendering layer.
	onChange func()
}

func New[T any](docs docstore.Store, path string, codec Codec[T]) *EntityStore[T] {
	return &EntityStore[T]{docs: docs, path: path, codec: codec}
}

// Path returns the mirrored collection path.
func (s *EntityStore[T]) Path() string { return s.path }

// OnChange registers a change hook. Must be set before the store is used.
func (s *EntityStore[T]) OnChange(fn func()) { s.onChange = fn }

// Add creates the entity remotely and merges the returned entity, carrying
// its backend-assigned id, into the mirror exactly once. On failure the
// mirror is unchanged and the failure reason is retained; nothing retries.
func (s *EntityStore[T]) Add(ctx context.Context, payload T) (T, error) {
	var zero T
	if err := s.begin(); err != nil {
		return zero, err
	}

	doc, err := s.docs.Create(ctx, s.path, s.codec.Encode(payload))
	if err != nil {
		s.settle(err)
		return zero, err
	}

	// A subscribed backend publishes the post-create snapshot before Create
	// returns, so the entity may already sit in the mirror. Replace it by id
	// in that case; a second append would leave a duplicate row until the
	// next snapshot.
	entity := s.codec.Decode(doc)
	s.mu.Lock()
	merged := false
	for i := range s.entities {
		if s.codec.ID(s.entities[i]) == doc.ID {
			s.entities[i] = entity
			merged = true
			break
		}
	}
	if !merged {
		s.entities = append(s.entities, entity)
	}
	s.mu.Unlock()
	s.settle(nil)
	s.notify()
	return entity, nil
}

// Update replaces the entity with the payload's id. An id absent from the
// mirror leaves every existing entry untouched: the remote write still
// happened, and the next snapshot settles the difference.
func (s *EntityStore[T]) Update(ctx context.Context, id string, payload T) (T, error) {
	var zero T
	if err := s.begin(); err != nil {
		return zero, err
	}

	if err := s.docs.UpdateByID(ctx, s.path, id, s.codec.Encode(payload)); err != nil {
		s.settle(err)
		return zero, err
	}

	entity := s.codec.Decode(docstore.Document{ID: id, Fields: s.codec.Encode(payload)})
	s.mu.Lock()
	replaced := false
	for i := range s.entities {
		if s.codec.ID(s.entities[i]) == id {
			s.entities[i] = entity
			replaced = true
			break
		}
	}
	s.mu.Unlock()
	if !replaced {
		slog.Warn("Updated entity not in local mirror", "collection", s.path, "id", id)
	}
	s.settle(nil)
	s.notify()
	return entity, nil
}

// Remove deletes the entity remotely and filters it out of the mirror.
func (s *EntityStore[T]) Remove(ctx context.Context, id string) (string, error) {
	if err := s.begin(); err != nil {
		return "", err
	}

	if err := s.docs.DeleteByID(ctx, s.path, id); err != nil {
		s.settle(err)
		return "", err
	}

	s.mu.Lock()
	kept := s.entities[:0]
	for _, e := range s.entities {
		if s.codec.ID(e) != id {
			kept = append(kept, e)
		}
	}
	s.entities = kept
	s.mu.Unlock()
	s.settle(nil)
	s.notify()
	return id, nil
}

// IngestSnapshot replaces the mirror wholesale. It is the only
// reconciliation path; there is no merging or diffing.
func (s *EntityStore[T]) IngestSnapshot(entities []T) {
	s.mu.Lock()
	s.entities = make([]T, len(entities))
	copy(s.entities, entities)
	s.mu.Unlock()
	s.notify()
}

// Subscribe attaches the store to the document store's live query. Snapshots
// flow into IngestSnapshot until the returned unsubscribe runs.
func (s *EntityStore[T]) Subscribe() (func(), error) {
	return s.docs.SubscribeCollection(s.path, func(docs []docstore.Document) {
		entities := make([]T, len(docs))
		for i, d := range docs {
			entities[i] = s.codec.Decode(d)
		}
		s.IngestSnapshot(entities)
	})
}

// Entities returns a copy of the mirror.
func (s *EntityStore[T]) Entities() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.entities))
	copy(out, s.entities)
	return out
}

// Loading reports whether a mutation is pending.
func (s *EntityStore[T]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the failure reason of the last settled mutation, or nil.
func (s *EntityStore[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *EntityStore[T]) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrOperationInFlight
	}
	s.inFlight = true
	s.loading = true
	s.err = nil
	return nil
}

func (s *EntityStore[T]) settle(err error) {
	s.mu.Lock()
	s.inFlight = false
	s.loading = false
	s.err = err
	s.mu.Unlock()
}

func (s *EntityStore[T]) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
