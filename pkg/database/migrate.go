package database

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration is one versioned schema change. Migrations are embedded in the
// binary rather than shipped as loose .sql files.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_sessions",
		SQL: `
			CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				started_at DATETIME NOT NULL,
				last_activity_at DATETIME NOT NULL,
				generation_count INTEGER NOT NULL DEFAULT 0,
				preferences TEXT NOT NULL DEFAULT '{}'
			);
		`,
	},
	{
		Version: 2,
		Name:    "create_session_history",
		SQL: `
			CREATE TABLE IF NOT EXISTS session_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id TEXT NOT NULL,
				timestamp DATETIME NOT NULL,
				request_summary TEXT NOT NULL,
				analysis TEXT NOT NULL DEFAULT '{}',
				outcome TEXT NOT NULL DEFAULT '{}',
				FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
			);
			CREATE INDEX IF NOT EXISTS idx_session_history_session_id
				ON session_history(session_id);
		`,
	},
}

// MigrationRunner applies pending migrations in version order, tracking
// applied versions in schema_migrations.
type MigrationRunner struct {
	db *sql.DB
}

// NewMigrationRunner creates a migration runner over an open connection.
func NewMigrationRunner(db *sql.DB) *MigrationRunner {
	return &MigrationRunner{db: db}
}

// RunMigrations applies every pending migration.
func (mr *MigrationRunner) RunMigrations() error {
	if err := mr.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := mr.appliedVersions()
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	pending := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for _, m := range pending {
		if err := mr.runMigration(m); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func (mr *MigrationRunner) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := mr.db.Exec(query)
	return err
}

func (mr *MigrationRunner) appliedVersions() (map[int]bool, error) {
	rows, err := mr.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// runMigration applies one migration inside a transaction so a failed
// statement never leaves a half-applied version behind.
func (mr *MigrationRunner) runMigration(m Migration) error {
	tx, err := mr.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(m.SQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}
