package docstore

import (
	"context"
	"testing"
)

func TestMemoryStoreCreateAssignsID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	path := ItemsPath("u1")

	doc, err := s.Create(ctx, path, map[string]any{"name": "Widget", "cost": 5.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.ID == "" {
		t.Fatal("Create returned empty id")
	}
	if doc.Fields["name"] != "Widget" {
		t.Fatalf("fields not preserved: %v", doc.Fields)
	}
}

func TestMemoryStoreSubscribeReceivesInitialSnapshot(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	path := ItemsPath("u1")

	if _, err := s.Create(ctx, path, map[string]any{"name": "a"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var got [][]Document
	unsub, err := s.SubscribeCollection(path, func(docs []Document) {
		got = append(got, docs)
	})
	if err != nil {
		t.Fatalf("SubscribeCollection: %v", err)
	}
	defer unsub()

	if len(got) != 1 || len(got[0]) != 1 {
		t.Fatalf("expected one initial snapshot with one doc, got %v", got)
	}
}

func TestMemoryStoreMutationsPushSnapshots(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	path := OtherCostsPath("u1")

	var snapshots [][]Document
	unsub, err := s.SubscribeCollection(path, func(docs []Document) {
		snapshots = append(snapshots, docs)
	})
	if err != nil {
		t.Fatalf("SubscribeCollection: %v", err)
	}
	defer unsub()

	doc, err := s.Create(ctx, path, map[string]any{"description": "x", "amount": 1.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.UpdateByID(ctx, path, doc.ID, map[string]any{"description": "y", "amount": 2.0}); err != nil {
		t.Fatalf("UpdateByID: %v", err)
	}
	if err := s.DeleteByID(ctx, path, doc.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}

	// initial empty + create + update + delete
	if len(snapshots) != 4 {
		t.Fatalf("expected 4 snapshots, got %d", len(snapshots))
	}
	if len(snapshots[1]) != 1 || len(snapshots[3]) != 0 {
		t.Fatalf("unexpected snapshot contents: %v", snapshots)
	}
	if snapshots[2][0].Fields["description"] != "y" {
		t.Fatalf("update snapshot stale: %v", snapshots[2])
	}
}

func TestMemoryStoreUpdateMissingID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	path := ItemsPath("u1")

	if err := s.UpdateByID(ctx, path, "nope", map[string]any{"name": "x"}); err == nil {
		t.Fatal("expected error updating missing document")
	}
	if err := s.DeleteByID(ctx, path, "nope"); err == nil {
		t.Fatal("expected error deleting missing document")
	}
}

func TestMemoryStoreUnsubscribeStopsPushes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	path := ItemsPath("u1")

	count := 0
	unsub, err := s.SubscribeCollection(path, func([]Document) { count++ })
	if err != nil {
		t.Fatalf("SubscribeCollection: %v", err)
	}
	unsub()

	if _, err := s.Create(ctx, path, map[string]any{"name": "a"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the initial snapshot, got %d pushes", count)
	}
}

func TestCollectionPaths(t *testing.T) {
	if got := ItemsPath("abc"); got != "users/abc/items" {
		t.Errorf("ItemsPath = %s", got)
	}
	if got := OtherCostsPath("abc"); got != "users/abc/otherCosts" {
		t.Errorf("OtherCostsPath = %s", got)
	}
}
