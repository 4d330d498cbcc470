package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leynos/baton/core/identity"
)

// =============================================================================
// SQLite Message Log
// =============================================================================
//
// SQLiteLog is the durable MessageLog. Uniqueness is enforced by the
// table constraints (primary key on id, UNIQUE on conversation_id +
// sequence_number); constraint violations are translated to the typed
// duplicate errors, so the database remains the sole source of truth for
// sequencing races.

const sqliteLogMaxOpenConns = 1

// SQLiteLog stores messages in a SQLite database.
type SQLiteLog struct {
	db *sql.DB
}

// OpenSQLiteLog opens (creating if needed) the message log at path.
func OpenSQLiteLog(path string) (*SQLiteLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(sqliteLogMaxOpenConns)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	l := &SQLiteLog{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLog) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		sequence_number INTEGER NOT NULL,
		metadata TEXT,
		created_at TEXT NOT NULL,
		UNIQUE (conversation_id, sequence_number)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(conversation_id, sequence_number);
	`
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (l *SQLiteLog) Close() error { return l.db.Close() }

// NextSequenceNumber returns max(sequence_number)+1 for the conversation,
// or 1 when it has no messages.
func (l *SQLiteLog) NextSequenceNumber(ctx context.Context, conversationID identity.ConversationID) (identity.SequenceNumber, error) {
	var max sql.NullInt64
	err := l.db.QueryRowContext(ctx, `
		SELECT MAX(sequence_number) FROM messages WHERE conversation_id = ?
	`, string(conversationID)).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read next sequence: %w", err)
	}
	if !max.Valid {
		return 1, nil
	}
	return identity.SequenceNumber(max.Int64 + 1), nil
}

// Store inserts the message; the table constraints make both duplicate
// checks atomic with the insert.
func (l *SQLiteLog) Store(ctx context.Context, msg *Message) error {
	content, err := json.Marshal(msg.Content)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}
	metadata, err := encodeMetadata(msg.Metadata)
	if err != nil {
		return err
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, sequence_number, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(msg.ID), string(msg.ConversationID), string(msg.Role), string(content),
		int64(msg.SequenceNumber), metadata, msg.CreatedAt.UTC().Format(time.RFC3339Nano))

	return l.translateInsertError(err, msg)
}

func (l *SQLiteLog) translateInsertError(err error, msg *Message) error {
	if err == nil {
		return nil
	}
	text := err.Error()
	switch {
	case strings.Contains(text, "UNIQUE constraint failed: messages.id"):
		return &DuplicateMessageError{MessageID: msg.ID}
	case strings.Contains(text, "UNIQUE constraint failed"):
		return &DuplicateSequenceError{ConversationID: msg.ConversationID, SequenceNumber: msg.SequenceNumber}
	}
	return fmt.Errorf("failed to store message: %w", err)
}

// FindByID returns the message or ErrMessageNotFound.
func (l *SQLiteLog) FindByID(ctx context.Context, id identity.MessageID) (*Message, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, role, content, sequence_number, metadata, created_at
		FROM messages WHERE id = ?
	`, string(id))

	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, ErrMessageNotFound
	}
	return msg, err
}

// Exists reports whether the message ID is stored.
func (l *SQLiteLog) Exists(ctx context.Context, id identity.MessageID) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM messages WHERE id = ?
	`, string(id)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check message existence: %w", err)
	}
	return n > 0, nil
}

// FindByConversation returns the conversation's messages in ascending
// sequence order.
func (l *SQLiteLog) FindByConversation(ctx context.Context, conversationID identity.ConversationID) ([]*Message, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, sequence_number, metadata, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY sequence_number ASC
	`, string(conversationID))
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var (
		id, convID, role, content, createdAt string
		metadata                             sql.NullString
		seq                                  int64
	)
	if err := row.Scan(&id, &convID, &role, &content, &seq, &metadata, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	msg := &Message{
		ID:             identity.MessageID(id),
		ConversationID: identity.ConversationID(convID),
		Role:           Role(role),
		SequenceNumber: identity.SequenceNumber(seq),
	}
	if err := json.Unmarshal([]byte(content), &msg.Content); err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	msg.CreatedAt = ts
	return msg, nil
}

func encodeMetadata(metadata map[string]string) (sql.NullString, error) {
	if len(metadata) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

var _ MessageLog = (*SQLiteLog)(nil)
