package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite keeps documents in a private in-memory SQLite table. Every write
// runs in its own transaction.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a fresh in-memory database. A single connection is kept
// open for the lifetime of the store, since an in-memory database lives
// only as long as its connection.
func NewSQLite() (*SQLite, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS documents (
            uri  TEXT PRIMARY KEY,
            text TEXT NOT NULL
        )
    `); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLite) upsert(ctx context.Context, uri, text string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO documents (uri, text)
            VALUES (?, ?)
            ON CONFLICT(uri) DO UPDATE SET text = excluded.text
        `, uri, text)
		if err != nil {
			return fmt.Errorf("failed to upsert document %s: %w", uri, err)
		}
		return nil
	})
}

func (s *SQLite) Open(ctx context.Context, uri, text string) error {
	return s.upsert(ctx, uri, text)
}

func (s *SQLite) Change(ctx context.Context, uri, text string) error {
	return s.upsert(ctx, uri, text)
}

func (s *SQLite) Close(ctx context.Context, uri string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE uri = ?", uri); err != nil {
			return fmt.Errorf("failed to delete document %s: %w", uri, err)
		}
		return nil
	})
}

func (s *SQLite) Read(ctx context.Context, uri string) (string, error) {
	var text string
	err := s.db.QueryRowContext(ctx, "SELECT text FROM documents WHERE uri = ?", uri).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound(uri)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query document %s: %w", uri, err)
	}
	return text, nil
}

func (s *SQLite) URIs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT uri FROM documents")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var uris []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		uris = append(uris, uri)
	}
	return uris, rows.Err()
}

func (s *SQLite) Release() error {
	return s.db.Close()
}
