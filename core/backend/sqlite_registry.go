package backend

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// =============================================================================
// SQLite Backend Registry
// =============================================================================

const sqliteRegistryMaxOpenConns = 1

// SQLiteRegistry stores backend metadata in a SQLite database.
type SQLiteRegistry struct {
	db *sql.DB
}

// OpenSQLiteRegistry opens (creating if needed) the registry at path.
func OpenSQLiteRegistry(path string) (*SQLiteRegistry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(sqliteRegistryMaxOpenConns)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	r := &SQLiteRegistry{db: db}
	if err := r.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRegistry) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agent_backends (
		name TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		endpoint TEXT NOT NULL DEFAULT '',
		enabled INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (r *SQLiteRegistry) Close() error { return r.db.Close() }

// Register adds a new backend.
func (r *SQLiteRegistry) Register(ctx context.Context, b *Backend) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agent_backends (name, kind, endpoint, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.Name, b.Kind, b.Endpoint, boolToInt(b.Enabled),
		b.CreatedAt.UTC().Format(time.RFC3339Nano), b.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrBackendExists, b.Name)
		}
		return fmt.Errorf("failed to register backend: %w", err)
	}
	return nil
}

// Update replaces an existing backend record.
func (r *SQLiteRegistry) Update(ctx context.Context, b *Backend) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE agent_backends
		SET kind = ?, endpoint = ?, enabled = ?, updated_at = ?
		WHERE name = ?
	`, b.Kind, b.Endpoint, boolToInt(b.Enabled),
		b.UpdatedAt.UTC().Format(time.RFC3339Nano), b.Name)
	if err != nil {
		return fmt.Errorf("failed to update backend: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update backend: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrBackendNotFound, b.Name)
	}
	return nil
}

// FindByName returns the backend or ErrBackendNotFound.
func (r *SQLiteRegistry) FindByName(ctx context.Context, name string) (*Backend, error) {
	row := r.db.QueryRowContext(ctx, backendSelect+` WHERE name = ?`, name)
	b, err := scanBackend(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotFound, name)
	}
	return b, err
}

// List returns all backends ordered by name.
func (r *SQLiteRegistry) List(ctx context.Context) ([]*Backend, error) {
	rows, err := r.db.QueryContext(ctx, backendSelect+` ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query backends: %w", err)
	}
	defer rows.Close()

	var out []*Backend
	for rows.Next() {
		b, err := scanBackend(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate backends: %w", err)
	}
	return out, nil
}

// Remove deletes the backend or returns ErrBackendNotFound.
func (r *SQLiteRegistry) Remove(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM agent_backends WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to remove backend: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove backend: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrBackendNotFound, name)
	}
	return nil
}

const backendSelect = `
	SELECT name, kind, endpoint, enabled, created_at, updated_at
	FROM agent_backends`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBackend(row rowScanner) (*Backend, error) {
	var (
		name, kind, endpoint, createdAt, updatedAt string
		enabled                                    int
	)
	if err := row.Scan(&name, &kind, &endpoint, &enabled, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan backend: %w", err)
	}

	b := &Backend{
		Name:     name,
		Kind:     kind,
		Endpoint: endpoint,
		Enabled:  enabled != 0,
	}
	var err error
	if b.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if b.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return b, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

var _ Registry = (*SQLiteRegistry)(nil)
