// Package sqlite implements the store driver on SQLite.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/bokpilot/bokpilot/internal/profile"
	"github.com/bokpilot/bokpilot/store"
)

// SQLite is supported on a best-effort basis for development and testing.
// Production deployments should use PostgreSQL: SQLite cannot handle
// concurrent chat turns writing plan metadata and audit rows reliably.

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a database specified by the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// WAL journal mode prevents most locking issues; busy_timeout covers
	// the rest. Pragmas for modernc.org/sqlite must be prefixed with _pragma=.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// A single connection is optimal for SQLite with WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) GetDB() any {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the schema if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrationStatements {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to run migration")
		}
	}
	return nil
}

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS memory_record (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		company_id TEXT NOT NULL,
		tier TEXT NOT NULL,
		content TEXT NOT NULL,
		importance REAL NOT NULL DEFAULT -1,
		confidence REAL NOT NULL DEFAULT -1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_used_at TIMESTAMP,
		expires_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memory_record_owner ON memory_record (user_id, company_id)`,
	`CREATE TABLE IF NOT EXISTS action_plan (
		message_id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL UNIQUE,
		user_id INTEGER NOT NULL,
		company_id TEXT NOT NULL,
		status TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		company_id TEXT NOT NULL,
		actor_type TEXT NOT NULL,
		action TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		new_state BLOB,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_owner ON audit_log (user_id, company_id, created_at DESC)`,
}
