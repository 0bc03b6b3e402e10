package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Cyclone1070/agentgate/internal/provider"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id            TEXT PRIMARY KEY,
    title         TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL,
    input_tokens  INTEGER NOT NULL DEFAULT 0,
    output_tokens INTEGER NOT NULL DEFAULT 0,
    message_count INTEGER NOT NULL DEFAULT 0,
    messages      TEXT NOT NULL DEFAULT '[]',
    options       TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
`

// Fixed-width so updated_at sorts lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultDBPath returns ~/.local/share/agentgate/sessions.db.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "agentgate", "sessions.db"), nil
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init sqlite %s: %w", path, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		return errors.New("session id is required")
	}
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, title, created_at, updated_at, input_tokens, output_tokens)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Title,
		sess.CreatedAt.UTC().Format(timeFormat), sess.UpdatedAt.UTC().Format(timeFormat),
		sess.Usage.InputTokens, sess.Usage.OutputTokens,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, created_at, updated_at, input_tokens, output_tokens
		FROM sessions WHERE id = ?`, id)

	var sess Session
	var createdAt, updatedAt string
	err := row.Scan(&sess.ID, &sess.Title, &createdAt, &updatedAt, &sess.Usage.InputTokens, &sess.Usage.OutputTokens)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	sess.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
	return &sess, nil
}

func (s *SQLiteStore) Update(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET title = ?, updated_at = ?, input_tokens = ?, output_tokens = ?
		WHERE id = ?`,
		sess.Title, sess.UpdatedAt.UTC().Format(timeFormat),
		sess.Usage.InputTokens, sess.Usage.OutputTokens, sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return requireRow(res, sess.ID)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created_at, updated_at, message_count, input_tokens + output_tokens
		FROM sessions ORDER BY updated_at DESC LIMIT ? OFFSET ?`, limit, max(opts.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var createdAt, updatedAt string
		if err := rows.Scan(&sum.ID, &sum.Title, &createdAt, &updatedAt, &sum.MessageCount, &sum.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.CreatedAt, _ = time.Parse(timeFormat, createdAt)
		sum.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LoadContext(ctx context.Context, id string) (*Conversation, error) {
	var msgJSON, optJSON string
	err := s.db.QueryRowContext(ctx, `SELECT messages, options FROM sessions WHERE id = ?`, id).Scan(&msgJSON, &optJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load context: %w", err)
	}

	conv := &Conversation{SessionID: id}
	if err := json.Unmarshal([]byte(msgJSON), &conv.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	var opts provider.Options
	if err := json.Unmarshal([]byte(optJSON), &opts); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	conv.Options = opts
	return conv, nil
}

func (s *SQLiteStore) SaveContext(ctx context.Context, id string, conv *Conversation) error {
	if conv == nil {
		return errors.New("conversation is nil")
	}
	msgs := conv.Messages
	if msgs == nil {
		msgs = []provider.Message{}
	}
	msgJSON, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	optJSON, err := json.Marshal(conv.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET messages = ?, options = ?, message_count = ?, updated_at = ?
		WHERE id = ?`,
		string(msgJSON), string(optJSON), len(msgs), time.Now().UTC().Format(timeFormat), id,
	)
	if err != nil {
		return fmt.Errorf("save context: %w", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
