// ABOUTME: SQLite implementation of the audit ledger using modernc.org/sqlite.
// ABOUTME: Schema is created automatically; WAL mode for concurrent turns.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the ledger database at path. Parent
// directories are created as needed.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL keeps concurrent turn recording from blocking reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("ledger store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			external_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			external_id TEXT NOT NULL,
			direction TEXT NOT NULL,
			author TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_turns_external_created
			ON turns(external_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordSession notes a newly opened backend conversation. Re-recording
// the same external id overwrites, which only happens after a process
// restart opened a fresh backend conversation.
func (s *SQLiteStore) RecordSession(ctx context.Context, rec *SessionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (external_id, conversation_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			created_at = excluded.created_at
	`, rec.ExternalID, rec.ConversationID, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording session: %w", err)
	}
	return nil
}

// RecordTurn appends one relayed message to the ledger.
func (s *SQLiteStore) RecordTurn(ctx context.Context, turn *Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, external_id, direction, author, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, turn.ID, turn.ExternalID, turn.Direction, turn.Author, turn.Text, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording turn: %w", err)
	}
	return nil
}

// ListTurns returns the most recent turns for a conversation, oldest
// first. Limit defaults to 50.
func (s *SQLiteStore) ListTurns(ctx context.Context, externalID string, limit int) ([]*Turn, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_id, direction, author, text, created_at
		FROM (
			SELECT * FROM turns
			WHERE external_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, id ASC
	`, externalID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	defer rows.Close()

	var turns []*Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.ExternalID, &t.Direction, &t.Author, &t.Text, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, &t)
	}
	return turns, rows.Err()
}

// GetSession returns the recorded session for an external conversation.
func (s *SQLiteStore) GetSession(ctx context.Context, externalID string) (*SessionRecord, error) {
	var rec SessionRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT external_id, conversation_id, created_at
		FROM sessions WHERE external_id = ?
	`, externalID).Scan(&rec.ExternalID, &rec.ConversationID, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return &rec, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
