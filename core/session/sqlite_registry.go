package session

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
// SQLite Session Registry
// =============================================================================

const sqliteRegistryMaxOpenConns = 1

// SQLiteRegistry stores agent sessions in a SQLite database.
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
	CREATE TABLE IF NOT EXISTS agent_sessions (
		session_id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		agent_backend TEXT NOT NULL,
		state TEXT NOT NULL,
		start_sequence INTEGER NOT NULL,
		initiated_by_handoff TEXT,
		terminated_by_handoff TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_agent_sessions_conversation
		ON agent_sessions(conversation_id, created_at);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (r *SQLiteRegistry) Close() error { return r.db.Close() }

// Store upserts the session by SessionID.
func (r *SQLiteRegistry) Store(ctx context.Context, sess *AgentSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agent_sessions
			(session_id, conversation_id, agent_backend, state, start_sequence,
			 initiated_by_handoff, terminated_by_handoff, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			state = excluded.state,
			terminated_by_handoff = excluded.terminated_by_handoff
	`, string(sess.SessionID), string(sess.ConversationID), sess.AgentBackend, string(sess.State),
		int64(sess.StartSequence), handoffIDOrNull(sess.InitiatedByHandoff),
		handoffIDOrNull(sess.TerminatedByHandoff), sess.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// FindByID returns the session or ErrSessionNotFound.
func (r *SQLiteRegistry) FindByID(ctx context.Context, id identity.AgentSessionID) (*AgentSession, error) {
	row := r.db.QueryRowContext(ctx, sessionSelect+` WHERE session_id = ?`, string(id))
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

// FindByConversation returns every session for the conversation, any
// state, ordered by creation time.
func (r *SQLiteRegistry) FindByConversation(ctx context.Context, conversationID identity.ConversationID) ([]*AgentSession, error) {
	rows, err := r.db.QueryContext(ctx, sessionSelect+`
		WHERE conversation_id = ? ORDER BY created_at ASC
	`, string(conversationID))
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []*AgentSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return out, nil
}

// FindActiveForConversation returns the conversation's Active session
// or ErrSessionNotFound.
func (r *SQLiteRegistry) FindActiveForConversation(ctx context.Context, conversationID identity.ConversationID) (*AgentSession, error) {
	row := r.db.QueryRowContext(ctx, sessionSelect+`
		WHERE conversation_id = ? AND state = ? LIMIT 1
	`, string(conversationID), string(StateActive))
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

const sessionSelect = `
	SELECT session_id, conversation_id, agent_backend, state, start_sequence,
	       initiated_by_handoff, terminated_by_handoff, created_at
	FROM agent_sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*AgentSession, error) {
	var (
		id, convID, backend, state, createdAt string
		initiatedBy, terminatedBy             sql.NullString
		startSeq                              int64
	)
	if err := row.Scan(&id, &convID, &backend, &state, &startSeq, &initiatedBy, &terminatedBy, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	sess := &AgentSession{
		SessionID:      identity.AgentSessionID(id),
		ConversationID: identity.ConversationID(convID),
		AgentBackend:   backend,
		State:          State(state),
		StartSequence:  identity.SequenceNumber(startSeq),
	}
	if initiatedBy.Valid {
		v := identity.HandoffID(initiatedBy.String)
		sess.InitiatedByHandoff = &v
	}
	if terminatedBy.Valid {
		v := identity.HandoffID(terminatedBy.String)
		sess.TerminatedByHandoff = &v
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	sess.CreatedAt = ts
	return sess, nil
}

func handoffIDOrNull(id *identity.HandoffID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*id), Valid: true}
}

var _ Registry = (*SQLiteRegistry)(nil)
