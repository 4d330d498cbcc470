package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"

	"github.com/leynos/baton/core/clock"
	"github.com/leynos/baton/core/identity"
)

// =============================================================================
// SQLite Snapshot Store
// =============================================================================
//
// Snapshots are written once and never change, so the by-ID read path
// sits behind a small LRU. Creation order is the insert order; rowid
// carries it so equal timestamps cannot reorder a session's history.

const (
	sqliteSnapshotMaxOpenConns = 1
	defaultSnapshotCacheSize   = 1024
)

// SQLiteStore stores context snapshots in a SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	clock clock.Clock
	cache *lru.Cache[string, *ContextSnapshot]
}

// OpenSQLiteStore opens (creating if needed) the snapshot store at path.
func OpenSQLiteStore(path string, c clock.Clock) (*SQLiteStore, error) {
	if c == nil {
		c = clock.System()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(sqliteSnapshotMaxOpenConns)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	cache, err := lru.New[string, *ContextSnapshot](defaultSnapshotCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, clock: c, cache: cache}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS context_snapshots (
		snapshot_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		snapshot_type TEXT NOT NULL,
		prior_turn_id TEXT,
		tool_call_refs TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_context_snapshots_session
		ON context_snapshots(session_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Capture appends a new snapshot.
func (s *SQLiteStore) Capture(ctx context.Context, sessionID identity.AgentSessionID, snapshotType Type, priorTurnID *identity.TurnID, refs []ToolCallReference) (*ContextSnapshot, error) {
	snap := &ContextSnapshot{
		SnapshotID:   uuid.NewString(),
		SessionID:    sessionID,
		SnapshotType: snapshotType,
		PriorTurnID:  priorTurnID,
		ToolCallRefs: append([]ToolCallReference(nil), refs...),
		CreatedAt:    s.clock.Now(),
	}

	encoded, err := json.Marshal(snap.ToolCallRefs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool call refs: %w", err)
	}

	var turnID sql.NullString
	if priorTurnID != nil {
		turnID = sql.NullString{String: string(*priorTurnID), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO context_snapshots
			(snapshot_id, session_id, snapshot_type, prior_turn_id, tool_call_refs, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.SnapshotID, string(sessionID), string(snapshotType), turnID, string(encoded),
		snap.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	s.cache.Add(snap.SnapshotID, snap.Clone())
	return snap, nil
}

// FindByID returns the snapshot or ErrSnapshotNotFound.
func (s *SQLiteStore) FindByID(ctx context.Context, snapshotID string) (*ContextSnapshot, error) {
	if snap, ok := s.cache.Get(snapshotID); ok {
		return snap.Clone(), nil
	}

	row := s.db.QueryRowContext(ctx, snapshotSelect+` WHERE snapshot_id = ?`, snapshotID)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	s.cache.Add(snap.SnapshotID, snap.Clone())
	return snap, nil
}

// FindForSession returns the session's snapshots in creation order.
func (s *SQLiteStore) FindForSession(ctx context.Context, sessionID identity.AgentSessionID) ([]*ContextSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, snapshotSelect+`
		WHERE session_id = ? ORDER BY rowid ASC
	`, string(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []*ContextSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return out, nil
}

const snapshotSelect = `
	SELECT snapshot_id, session_id, snapshot_type, prior_turn_id, tool_call_refs, created_at
	FROM context_snapshots`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*ContextSnapshot, error) {
	var (
		id, sessionID, snapType, refs, createdAt string
		turnID                                   sql.NullString
	)
	if err := row.Scan(&id, &sessionID, &snapType, &turnID, &refs, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	snap := &ContextSnapshot{
		SnapshotID:   id,
		SessionID:    identity.AgentSessionID(sessionID),
		SnapshotType: Type(snapType),
	}
	if turnID.Valid {
		v := identity.TurnID(turnID.String)
		snap.PriorTurnID = &v
	}
	if err := json.Unmarshal([]byte(refs), &snap.ToolCallRefs); err != nil {
		return nil, fmt.Errorf("failed to decode tool call refs: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	snap.CreatedAt = ts
	return snap, nil
}

var _ Store = (*SQLiteStore)(nil)
