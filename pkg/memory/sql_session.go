package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kairoslabs/agentcore/pkg/message"
)

const createSnapshotsSQL = `
CREATE TABLE IF NOT EXISTS session_snapshots (
    session_id VARCHAR(255) PRIMARY KEY,
    messages_json TEXT NOT NULL
)`

// SQLSessionStore is a SessionStore backed by database/sql, grounded on
// the teacher's SQLSessionService but simplified to this spec's
// snapshot-per-session model (no per-event normalization): one row per
// session holding its full message sequence as JSON.
type SQLSessionStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLSessionStore opens dsn and ensures the session_snapshots table
// exists.
func NewSQLSessionStore(dsn string) (*SQLSessionStore, error) {
	driver, dialect, stripped, err := dialectFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, stripped)
	if err != nil {
		return nil, fmt.Errorf("memory: opening %s database: %w", dialect, err)
	}

	s := &SQLSessionStore{db: db, dialect: dialect}
	if _, err := db.ExecContext(context.Background(), createSnapshotsSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: creating session_snapshots table: %w", err)
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *SQLSessionStore) Close() error {
	return s.db.Close()
}

func (s *SQLSessionStore) upsertQuery() string {
	switch s.dialect {
	case "postgres":
		return `INSERT INTO session_snapshots (session_id, messages_json) VALUES ($1, $2)
                ON CONFLICT (session_id) DO UPDATE SET messages_json = $2`
	case "mysql":
		return `INSERT INTO session_snapshots (session_id, messages_json) VALUES (?, ?)
                ON DUPLICATE KEY UPDATE messages_json = VALUES(messages_json)`
	default: // sqlite
		return `INSERT INTO session_snapshots (session_id, messages_json) VALUES (?, ?)
                ON CONFLICT (session_id) DO UPDATE SET messages_json = excluded.messages_json`
	}
}

func (s *SQLSessionStore) Get(ctx context.Context, sessionID string) (Snapshot, error) {
	query := placeholders(s.dialect, `SELECT messages_json FROM session_snapshots WHERE session_id = ?`)

	var messagesJSON string
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&messagesJSON)
	if err == sql.ErrNoRows {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("memory: getting session snapshot: %w", err)
	}

	var msgs []message.Message
	if err := json.Unmarshal([]byte(messagesJSON), &msgs); err != nil {
		return Snapshot{}, fmt.Errorf("memory: unmarshaling session snapshot: %w", err)
	}
	return Snapshot{SessionID: sessionID, Messages: msgs}, nil
}

func (s *SQLSessionStore) Put(ctx context.Context, sessionID string, messages []message.Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("memory: marshaling session snapshot: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, s.upsertQuery(), sessionID, string(data)); err != nil {
		return fmt.Errorf("memory: upserting session snapshot: %w", err)
	}
	return nil
}

func (s *SQLSessionStore) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM session_snapshots`)
	if err != nil {
		return nil, fmt.Errorf("memory: listing sessions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	query := placeholders(s.dialect, `DELETE FROM session_snapshots WHERE session_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("memory: deleting session snapshot: %w", err)
	}
	return nil
}

var _ SessionStore = (*SQLSessionStore)(nil)
