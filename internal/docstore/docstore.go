// Package docstore is the document-database collaborator: per-user
// collections of schemaless documents with live-query subscriptions. Every
// mutation routes through the backend, and subscribers always receive the
// full current document set of a collection, never a diff.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound reports that a document id does not exist in its collection.
var ErrNotFound = errors.New("document not found")

// Document is one stored record: a backend-assigned id plus its fields.
type Document struct {
	ID     string
	Fields map[string]any
}

// Store is the narrow interface the rest of the application sees.
type Store interface {
	// Create stores fields as a new document and returns it with its
	// backend-assigned id.
	Create(ctx context.Context, path string, fields map[string]any) (Document, error)

	// UpdateByID replaces the fields of an existing document.
	UpdateByID(ctx context.Context, path, id string, fields map[string]any) error

	// DeleteByID removes a document.
	DeleteByID(ctx context.Context, path, id string) error

	// SubscribeCollection registers fn to receive the complete document set
	// of the collection on every change. The initial load counts as a
	// change: fn fires once with the current snapshot before Subscribe
	// returns. The returned function cancels the subscription.
	SubscribeCollection(path string, fn func([]Document)) (func(), error)
}

// Refresher re-reads a collection and pushes a fresh snapshot to its
// subscribers. The events bridge uses it to propagate changes made by
// other instances.
type Refresher interface {
	Refresh(path string)
}

// ItemsPath is the collection path of a user's items.
func ItemsPath(uid string) string { return "users/" + uid + "/items" }

// OtherCostsPath is the collection path of a user's other costs.
func OtherCostsPath(uid string) string { return "users/" + uid + "/otherCosts" }
