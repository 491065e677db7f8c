package events

import (
	"context"
	"testing"
	"time"

	"costtracker/internal/docstore"
)

func TestNewChangeMessage(t *testing.T) {
	msg := NewChangeMessage("users/u1/items", "instance-a")

	if msg.Path != "users/u1/items" {
		t.Errorf("Path = %q, want %q", msg.Path, "users/u1/items")
	}
	if msg.Origin != "instance-a" {
		t.Errorf("Origin = %q, want %q", msg.Origin, "instance-a")
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestChangeMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &ChangeMessage{
		Path:      "users/u1/otherCosts",
		Origin:    "instance-b",
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ChangeMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("ChangeMessageFromJSON() error = %v", err)
	}

	if parsed.Path != msg.Path {
		t.Errorf("Parsed Path = %q, want %q", parsed.Path, msg.Path)
	}
	if parsed.Origin != msg.Origin {
		t.Errorf("Parsed Origin = %q, want %q", parsed.Origin, msg.Origin)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestChangeMessage_InvalidJSON(t *testing.T) {
	if _, err := ChangeMessageFromJSON([]byte(`{"path": 42}`)); err == nil {
		t.Error("ChangeMessageFromJSON() should fail with invalid JSON")
	}
}

func TestNilBridgeIsInert(t *testing.T) {
	var bridge *Bridge

	if err := bridge.PublishChange(context.Background(), "users/u1/items"); err != nil {
		t.Errorf("nil bridge PublishChange: %v", err)
	}
	if err := bridge.Close(); err != nil {
		t.Errorf("nil bridge Close: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := bridge.ConsumeChanges(ctx, docstore.NewMemoryStore()); err != context.Canceled {
		t.Errorf("nil bridge ConsumeChanges = %v, want context.Canceled", err)
	}
}

func TestPublishingStoreDelegates(t *testing.T) {
	inner := docstore.NewMemoryStore()
	store := NewPublishingStore(inner, nil)
	ctx := context.Background()
	path := docstore.ItemsPath("u1")

	doc, err := store.Create(ctx, path, map[string]any{"name": "Widget", "cost": 5.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.ID == "" {
		t.Error("Create did not delegate to the inner store")
	}

	if err := store.UpdateByID(ctx, path, doc.ID, map[string]any{"name": "Widget2", "cost": 6.0}); err != nil {
		t.Fatalf("UpdateByID: %v", err)
	}
	if err := store.DeleteByID(ctx, path, doc.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
}
