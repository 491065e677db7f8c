// Package storage is the SQLite persistence layer shared by the document
// store and the local identity provider: a documents table keyed by
// collection path and document id, and a users table for credentials.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
)

// DocumentRecord is a stored document: its id and the raw JSON field blob.
type DocumentRecord struct {
	ID     string
	Fields []byte
}

// UserRecord is a stored account.
type UserRecord struct {
	UID          string
	Email        string
	DisplayName  string
	PhotoURL     string
	PasswordHash string
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertDocument stores a new document under the given collection path.
func (r *SQLiteRepository) InsertDocument(ctx context.Context, collection, id string, fields []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (collection, doc_id, fields) VALUES (?, ?, ?)`,
		collection, id, string(fields))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	slog.DebugContext(ctx, "Document inserted", "collection", collection, "doc_id", id)
	return nil
}

// UpdateDocument replaces the field blob of an existing document.
func (r *SQLiteRepository) UpdateDocument(ctx context.Context, collection, id string, fields []byte) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET fields = ?, updated_at = CURRENT_TIMESTAMP WHERE collection = ? AND doc_id = ?`,
		string(fields), collection, id)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document rows affected: %w", err)
	}
	if n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// DeleteDocument removes a document by id.
func (r *SQLiteRepository) DeleteDocument(ctx context.Context, collection, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND doc_id = ?`,
		collection, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document rows affected: %w", err)
	}
	if n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// ListDocuments returns every document in a collection in insertion order.
func (r *SQLiteRepository) ListDocuments(ctx context.Context, collection string) ([]DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT doc_id, fields FROM documents WHERE collection = ? ORDER BY created_at, doc_id`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRecord
	for rows.Next() {
		var rec DocumentRecord
		var fields string
		if err := rows.Scan(&rec.ID, &fields); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		rec.Fields = []byte(fields)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// CreateUser stores a new account. A duplicate email maps to ErrEmailTaken.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u UserRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (uid, email, display_name, photo_url, password_hash) VALUES (?, ?, ?, ?, ?)`,
		u.UID, u.Email, u.DisplayName, u.PhotoURL, u.PasswordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "uid", u.UID, "email", u.Email)
	return nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (UserRecord, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT uid, email, display_name, photo_url, password_hash FROM users WHERE email = ?`, email))
}

func (r *SQLiteRepository) UserByUID(ctx context.Context, uid string) (UserRecord, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT uid, email, display_name, photo_url, password_hash FROM users WHERE uid = ?`, uid))
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (UserRecord, error) {
	var u UserRecord
	err := row.Scan(&u.UID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRecord{}, ErrUserNotFound
	}
	if err != nil {
		return UserRecord{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
