package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps documents and their revision history in a local SQLite
// database. A document's committed body lives in `documents`; every Save of
// a dirty buffer appends a row to `revisions`.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			ref TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			dirty INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS revisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ref TEXT NOT NULL,
			body TEXT NOT NULL,
			edit_count INTEGER NOT NULL,
			created_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_revisions_ref ON revisions(ref);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Put seeds or overwrites a document body. The seeded body is considered
// clean (committed).
func (s *SQLiteStore) Put(ctx context.Context, ref, body string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (ref, body, dirty, updated_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(ref) DO UPDATE SET
			body=excluded.body,
			dirty=0,
			updated_at=excluded.updated_at
	`, ref, body, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Read returns the current body of the referenced document.
func (s *SQLiteStore) Read(ctx context.Context, ref string) (string, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE ref = ?`, ref).Scan(&body)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("document not found: %s", ref)
	}
	if err != nil {
		return "", err
	}
	return body, nil
}

// ApplyChangeSet applies the staged edits to the stored body within one
// transaction. A failing edit rolls the whole set back; the document is
// marked dirty on success and stays unchanged on failure.
func (s *SQLiteStore) ApplyChangeSet(ctx context.Context, ref string, edits []Edit) error {
	if len(edits) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx, `SELECT body FROM documents WHERE ref = ?`, ref).Scan(&body)
	if err == sql.ErrNoRows {
		return fmt.Errorf("document not found: %s", ref)
	}
	if err != nil {
		return err
	}

	lines := splitBody(body)
	edited, err := ApplyEdits(lines, edits)
	if err != nil {
		return fmt.Errorf("change-set could not be applied: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET body = ?, dirty = 1, updated_at = ? WHERE ref = ?
	`, joinBody(edited), time.Now().UTC().Format(time.RFC3339), ref)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Save persists the dirty buffer: it records a revision row and clears the
// dirty flag. Saving a clean document is a no-op.
func (s *SQLiteStore) Save(ctx context.Context, ref string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var body string
	var dirty int
	err = tx.QueryRowContext(ctx, `SELECT body, dirty FROM documents WHERE ref = ?`, ref).Scan(&body, &dirty)
	if err == sql.ErrNoRows {
		return fmt.Errorf("document not found: %s", ref)
	}
	if err != nil {
		return err
	}
	if dirty == 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO revisions (ref, body, edit_count, created_at)
		SELECT ?, ?, COALESCE((SELECT MAX(edit_count) FROM revisions WHERE ref = ?), 0) + 1, ?
	`, ref, body, ref, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE documents SET dirty = 0, updated_at = ? WHERE ref = ?`, now, ref); err != nil {
		return err
	}
	return tx.Commit()
}

// Revisions returns how many saved revisions exist for a document.
func (s *SQLiteStore) Revisions(ctx context.Context, ref string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM revisions WHERE ref = ?`, ref).Scan(&n)
	return n, err
}

func splitBody(body string) []string {
	if body == "" {
		return nil
	}
	lines := strings.Split(body, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" && strings.HasSuffix(body, "\n") {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func joinBody(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
