package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists poll cursors to a local SQLite file so a restart does
// not re-answer the last message.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS poll_cursors (
		conversation_sid TEXT PRIMARY KEY,
		message_sid      TEXT NOT NULL,
		updated_at       DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// LoadCursor returns the stored cursor for the conversation, or "" when none
// has been saved yet.
func (s *SQLiteStore) LoadCursor(ctx context.Context, conversationSID string) (string, error) {
	var messageSID string
	err := s.db.QueryRowContext(ctx,
		`SELECT message_sid FROM poll_cursors WHERE conversation_sid = ?`, conversationSID,
	).Scan(&messageSID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load cursor: %w", err)
	}
	return messageSID, nil
}

func (s *SQLiteStore) SaveCursor(ctx context.Context, conversationSID, messageSID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO poll_cursors (conversation_sid, message_sid, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(conversation_sid) DO UPDATE SET
		   message_sid = excluded.message_sid,
		   updated_at  = excluded.updated_at`,
		conversationSID, messageSID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
