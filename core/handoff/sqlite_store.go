package handoff

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leynos/baton/core/identity"
)

// =============================================================================
// SQLite Handoff Store
// =============================================================================

const sqliteHandoffMaxOpenConns = 1

// SQLiteStore stores handoff records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the handoff store at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(sqliteHandoffMaxOpenConns)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS handoffs (
		handoff_id TEXT PRIMARY KEY,
		source_session_id TEXT NOT NULL,
		source_agent TEXT NOT NULL,
		target_agent TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT,
		target_session_id TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_handoffs_source
		ON handoffs(source_session_id);
	CREATE INDEX IF NOT EXISTS idx_handoffs_status
		ON handoffs(status);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Store upserts the handoff by HandoffID.
func (s *SQLiteStore) Store(ctx context.Context, h *Handoff) error {
	var completedAt sql.NullString
	if h.CompletedAt != nil {
		completedAt = sql.NullString{String: h.CompletedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	var targetSession sql.NullString
	if h.TargetSessionID != nil {
		targetSession = sql.NullString{String: string(*h.TargetSessionID), Valid: true}
	}
	var reason sql.NullString
	if h.Reason != nil {
		reason = sql.NullString{String: *h.Reason, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO handoffs
			(handoff_id, source_session_id, source_agent, target_agent, status,
			 reason, target_session_id, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(handoff_id) DO UPDATE SET
			status = excluded.status,
			reason = excluded.reason,
			target_session_id = excluded.target_session_id,
			completed_at = excluded.completed_at
	`, string(h.HandoffID), string(h.SourceSessionID), h.SourceAgent, h.TargetAgent, string(h.Status),
		reason, targetSession, completedAt, h.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to store handoff: %w", err)
	}
	return nil
}

// FindByID returns the handoff or ErrHandoffNotFound.
func (s *SQLiteStore) FindByID(ctx context.Context, id identity.HandoffID) (*Handoff, error) {
	row := s.db.QueryRowContext(ctx, handoffSelect+` WHERE handoff_id = ?`, string(id))
	h, err := scanHandoff(row)
	if err == sql.ErrNoRows {
		return nil, ErrHandoffNotFound
	}
	return h, err
}

// FindBySourceSession returns the session's handoffs in creation order.
func (s *SQLiteStore) FindBySourceSession(ctx context.Context, sessionID identity.AgentSessionID) ([]*Handoff, error) {
	rows, err := s.db.QueryContext(ctx, handoffSelect+`
		WHERE source_session_id = ? ORDER BY rowid ASC
	`, string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to query handoffs: %w", err)
	}
	defer rows.Close()

	var out []*Handoff
	for rows.Next() {
		h, err := scanHandoff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate handoffs: %w", err)
	}
	return out, nil
}

const handoffSelect = `
	SELECT handoff_id, source_session_id, source_agent, target_agent, status,
	       reason, target_session_id, completed_at, created_at
	FROM handoffs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHandoff(row rowScanner) (*Handoff, error) {
	var (
		id, sourceSession, sourceAgent, targetAgent, status, createdAt string
		reason, targetSession, completedAt                             sql.NullString
	)
	if err := row.Scan(&id, &sourceSession, &sourceAgent, &targetAgent, &status,
		&reason, &targetSession, &completedAt, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan handoff: %w", err)
	}

	h := &Handoff{
		HandoffID:       identity.HandoffID(id),
		SourceSessionID: identity.AgentSessionID(sourceSession),
		SourceAgent:     sourceAgent,
		TargetAgent:     targetAgent,
		Status:          Status(status),
	}
	if reason.Valid {
		h.Reason = &reason.String
	}
	if targetSession.Valid {
		v := identity.AgentSessionID(targetSession.String)
		h.TargetSessionID = &v
	}
	if completedAt.Valid {
		ts, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed_at: %w", err)
		}
		h.CompletedAt = &ts
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	h.CreatedAt = ts
	return h, nil
}

var _ Store = (*SQLiteStore)(nil)
