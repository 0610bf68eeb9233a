/*
Package sqlite provides the SQLite-backed leave store.

PURPOSE:
  The default store for single-node deployments and for tests. Queries live
  in store/sqlstore; this package supplies the dialect and the connection
  setup.

CONCURRENCY:
  SQLite has no row locks. The pool is capped at one connection and every
  transaction is BEGIN IMMEDIATE, so write transactions run strictly one at
  a time and "lock the user row" reduces to "hold the write transaction".
  Other processes sharing the file wait up to the busy timeout.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

DATES:
  Dates are TEXT "YYYY-MM-DD" and timestamps fixed-width UTC text, so
  string comparison is chronological.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/sqlstore: Shared queries
  - store/postgres: Multi-node alternative
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/store/sqlstore"
)

// Store is a sqlstore.Store over SQLite.
type Store struct {
	*sqlstore.Store
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	s, err := sqlstore.New(context.Background(), db, Dialect{})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{Store: s}, nil
}

// =============================================================================
// DIALECT
// =============================================================================

type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }
func (Dialect) Rebind(query string) string { return query }
func (Dialect) ForUpdate() string { return "" }
func (Dialect) DateArg(tp generic.TimePoint) any { return tp.String() }
func (Dialect) TimeArg(t time.Time) any { return sqlstore.FormatTime(t) }

func (Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (Dialect) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL CHECK (role IN ('employee', 'admin')),
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS leave_entitlements (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			year INTEGER NOT NULL,
			quota_days INTEGER NOT NULL DEFAULT 12 CHECK (quota_days >= 0),
			carried_forward_days INTEGER NOT NULL DEFAULT 0 CHECK (carried_forward_days >= 0),
			created_by TEXT REFERENCES users(id) ON DELETE SET NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (user_id, year)
		)`,

		`CREATE TABLE IF NOT EXISTS leave_requests (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			year INTEGER NOT NULL,
			request_days INTEGER NOT NULL CHECK (request_days > 0),
			reason TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'approved', 'rejected', 'cancelled')),
			attachment TEXT,
			decided_by TEXT REFERENCES users(id) ON DELETE SET NULL,
			decided_at TEXT,
			decision_note TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leave_requests_user_status
			ON leave_requests(user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_leave_requests_user_created
			ON leave_requests(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_leave_requests_dates
			ON leave_requests(start_date, end_date)`,
		`CREATE INDEX IF NOT EXISTS idx_leave_requests_user_year
			ON leave_requests(user_id, year, status)`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			occurred_at TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			action TEXT NOT NULL,
			subject_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			payload_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_log(user_id)`,
	}
}
