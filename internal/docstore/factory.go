package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"costtracker/internal/storage"
)

// BackendType selects the document-store implementation.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, SheetsBackend:
		return true
	}
	return false
}

// Config holds backend-creation settings.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Sheets specific
	SheetName    string
	PollInterval time.Duration
}

// Result bundles the created store with its cleanup. Repo is non-nil only
// for the sqlite backend, where the identity provider shares the database.
type Result struct {
	Store   Store
	Repo    *storage.SQLiteRepository
	Cleanup func() error
}

// New creates a document store from config, the factory pattern the server
// binary drives.
func New(ctx context.Context, cfg Config) (*Result, error) {
	switch cfg.Type {
	case MemoryBackend:
		slog.Info("Initialized memory document store")
		return &Result{Store: NewMemoryStore()}, nil

	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite repository: %w", err)
		}
		slog.Info("Initialized sqlite document store", "db_path", cfg.SQLiteDBPath)
		return &Result{
			Store:   NewSQLiteStore(repo),
			Repo:    repo,
			Cleanup: repo.Close,
		}, nil

	case SheetsBackend:
		store, err := NewSheetsStoreFromEnv(ctx, cfg.SheetName, cfg.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("initialize sheets store: %w", err)
		}
		slog.Info("Initialized sheets document store", "sheet", cfg.SheetName, "poll_interval", cfg.PollInterval)
		return &Result{Store: store, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported document store backend: %s", cfg.Type)
	}
}
