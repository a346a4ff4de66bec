// Package database persists sessions. The SQLite store is the durable
// implementation; MemoryStore backs tests and offline regression runs.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/session"
)

// SQLiteStore implements session.Store over a local SQLite file. History
// rows are append-only; preferences and analysis snapshots live in JSON
// columns so the schema does not chase the Go types.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and runs
// pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := NewMigrationRunner(db).RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadSession loads a session with its full history. Returns (nil, nil)
// when the session does not exist.
func (s *SQLiteStore) LoadSession(ctx context.Context, id string) (*session.Session, error) {
	query := `
		SELECT id, started_at, last_activity_at, generation_count, preferences
		FROM sessions WHERE id = ?
	`
	var sess session.Session
	var preferencesJSON string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sess.ID, &sess.StartedAt, &sess.LastActivityAt, &sess.GenerationCount, &preferencesJSON,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if err := json.Unmarshal([]byte(preferencesJSON), &sess.Preferences); err != nil {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}

	history, err := s.loadHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.History = history
	return &sess, nil
}

func (s *SQLiteStore) loadHistory(ctx context.Context, sessionID string) ([]session.HistoryEntry, error) {
	query := `
		SELECT timestamp, request_summary, analysis, outcome
		FROM session_history WHERE session_id = ? ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var history []session.HistoryEntry
	for rows.Next() {
		var entry session.HistoryEntry
		var analysisJSON, outcomeJSON string
		if err := rows.Scan(&entry.Timestamp, &entry.RequestSummary, &analysisJSON, &outcomeJSON); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if err := json.Unmarshal([]byte(analysisJSON), &entry.Analysis); err != nil {
			return nil, fmt.Errorf("failed to decode analysis snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(outcomeJSON), &entry.Outcome); err != nil {
			return nil, fmt.Errorf("failed to decode outcome: %w", err)
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

// SaveSession upserts the session row and appends any history entries not
// yet persisted. Existing history rows are never rewritten.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess *session.Session) error {
	preferencesJSON, err := json.Marshal(sess.Preferences)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO sessions (id, started_at, last_activity_at, generation_count, preferences)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_activity_at = excluded.last_activity_at,
			generation_count = excluded.generation_count,
			preferences = excluded.preferences
	`
	if _, err := tx.ExecContext(ctx, upsert,
		sess.ID, sess.StartedAt, sess.LastActivityAt, sess.GenerationCount, string(preferencesJSON)); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	var persisted int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM session_history WHERE session_id = ?", sess.ID).Scan(&persisted); err != nil {
		return fmt.Errorf("failed to count history: %w", err)
	}

	for _, entry := range sess.History[min(persisted, len(sess.History)):] {
		analysisJSON, err := json.Marshal(entry.Analysis)
		if err != nil {
			return fmt.Errorf("failed to encode analysis snapshot: %w", err)
		}
		outcomeJSON, err := json.Marshal(entry.Outcome)
		if err != nil {
			return fmt.Errorf("failed to encode outcome: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_history (session_id, timestamp, request_summary, analysis, outcome)
			VALUES (?, ?, ?, ?, ?)`,
			sess.ID, entry.Timestamp, entry.RequestSummary, string(analysisJSON), string(outcomeJSON)); err != nil {
			return fmt.Errorf("failed to append history entry: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteSession removes the session and, via the foreign key cascade, its
// history.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListSessionIDs returns session IDs ordered by most recent activity.
func (s *SQLiteStore) ListSessionIDs(ctx context.Context, limit, offset int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM sessions ORDER BY last_activity_at DESC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
