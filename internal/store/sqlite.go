package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/MOE-sub001/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial equivalences/migrations schema
const currentSchemaVersion = 1

// SQLiteStore keeps facts in a SQLite database, one row per fact.
//
// Idempotence is enforced by UNIQUE constraints with ON CONFLICT DO NOTHING.
// Every note is committed immediately, so Write has nothing left to do.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &IOError{Location: path, Op: "read", Err: fmt.Errorf("open database: %w", err)}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &IOError{Location: path, Op: "read", Err: fmt.Errorf("connect to database: %w", err)}
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, &ConfigError{Location: path, Err: fmt.Errorf("apply pragmas: %w", err)}
	}

	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, &ConfigError{Location: path, Err: fmt.Errorf("apply schema: %w", err)}
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Location returns the sqlite: location the store was opened from.
func (s *SQLiteStore) Location() string {
	return sqlitePrefix + s.path
}

// NoteEquivalence inserts e. A duplicate is silently ignored.
func (s *SQLiteStore) NoteEquivalence(ctx context.Context, e ir.Equivalence) error {
	revs := e.Revisions()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO equivalences (repo_a, rev_a, repo_b, rev_b)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(repo_a, rev_a, repo_b, rev_b) DO NOTHING
	`, revs[0].RepositoryName, revs[0].RevID, revs[1].RepositoryName, revs[1].RevID)
	if err != nil {
		return &IOError{Location: s.Location(), Op: "write", Err: fmt.Errorf("note equivalence: %w", err)}
	}
	return nil
}

// FindEquivalences returns revisions of otherRepository equivalent to rev,
// in the order the equivalences were recorded.
func (s *SQLiteStore) FindEquivalences(ctx context.Context, rev ir.Revision, otherRepository string) ([]ir.Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rev_b FROM equivalences
		WHERE repo_a = ? AND rev_a = ? AND repo_b = ?
		UNION ALL
		SELECT id, rev_a FROM equivalences
		WHERE repo_b = ? AND rev_b = ? AND repo_a = ?
		ORDER BY id ASC
	`, rev.RepositoryName, rev.RevID, otherRepository,
		rev.RepositoryName, rev.RevID, otherRepository)
	if err != nil {
		return nil, &IOError{Location: s.Location(), Op: "read", Err: fmt.Errorf("query equivalences: %w", err)}
	}
	defer rows.Close()

	var out []ir.Revision
	for rows.Next() {
		var id int64
		var revID string
		if err := rows.Scan(&id, &revID); err != nil {
			return nil, &IOError{Location: s.Location(), Op: "read", Err: fmt.Errorf("scan equivalence: %w", err)}
		}
		out = append(out, ir.NewRevision(revID, otherRepository))
	}
	if err := rows.Err(); err != nil {
		return nil, &IOError{Location: s.Location(), Op: "read", Err: fmt.Errorf("iterate equivalences: %w", err)}
	}
	return out, nil
}

// NoteMigration inserts m and reports whether a new row was written.
func (s *SQLiteStore) NoteMigration(ctx context.Context, m ir.SubmittedMigration) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO migrations (from_repo, from_rev, to_repo, to_rev)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(from_repo, from_rev, to_repo, to_rev) DO NOTHING
	`, m.From.RepositoryName, m.From.RevID, m.To.RepositoryName, m.To.RevID)
	if err != nil {
		return false, &IOError{Location: s.Location(), Op: "write", Err: fmt.Errorf("note migration: %w", err)}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, &IOError{Location: s.Location(), Op: "write", Err: fmt.Errorf("note migration: rows affected: %w", err)}
	}
	return rowsAffected > 0, nil
}

// HasMigration checks whether m is recorded.
func (s *SQLiteStore) HasMigration(ctx context.Context, m ir.SubmittedMigration) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM migrations
		WHERE from_repo = ? AND from_rev = ? AND to_repo = ? AND to_rev = ?
	`, m.From.RepositoryName, m.From.RevID, m.To.RepositoryName, m.To.RevID).Scan(&count)
	if err != nil {
		return false, &IOError{Location: s.Location(), Op: "read", Err: fmt.Errorf("check migration: %w", err)}
	}
	return count > 0, nil
}

// Snapshot reads every fact in insertion order.
func (s *SQLiteStore) Snapshot(ctx context.Context) (ir.Snapshot, error) {
	var snap ir.Snapshot

	rows, err := s.db.QueryContext(ctx, `
		SELECT repo_a, rev_a, repo_b, rev_b FROM equivalences ORDER BY id ASC
	`)
	if err != nil {
		return ir.Snapshot{}, &IOError{Location: s.Location(), Op: "read", Err: fmt.Errorf("query equivalences: %w", err)}
	}
	for rows.Next() {
		var a, b ir.Revision
		if err := rows.Scan(&a.RepositoryName, &a.RevID, &b.RepositoryName, &b.RevID); err != nil {
			rows.Close()
			return ir.Snapshot{}, &IOError{Location: s.Location(), Op: "read", Err: fmt.Errorf("scan equivalence: %w", err)}
		}
		e, err := ir.NewEquivalence(a, b)
		if err != nil {
			rows.Close()
			return ir.Snapshot{}, &ConfigError{Location: s.Location(), Err: err}
		}
		snap.AddEquivalence(e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return ir.Snapshot{}, &IOError{Location: s.Location(), Op: "read", Err: fmt.Errorf("iterate equivalences: %w", err)}
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT from_repo, from_rev, to_repo, to_rev FROM migrations ORDER BY id ASC
	`)
	if err != nil {
		return ir.Snapshot{}, &IOError{Location: s.Location(), Op: "read", Err: fmt.Errorf("query migrations: %w", err)}
	}
	defer rows.Close()
	for rows.Next() {
		var m ir.SubmittedMigration
		if err := rows.Scan(&m.From.RepositoryName, &m.From.RevID, &m.To.RepositoryName, &m.To.RevID); err != nil {
			return ir.Snapshot{}, &IOError{Location: s.Location(), Op: "read", Err: fmt.Errorf("scan migration: %w", err)}
		}
		snap.AddMigration(m)
	}
	if err := rows.Err(); err != nil {
		return ir.Snapshot{}, &IOError{Location: s.Location(), Op: "read", Err: fmt.Errorf("iterate migrations: %w", err)}
	}
	return snap, nil
}

// Write is a no-op: every note is already committed.
func (s *SQLiteStore) Write(context.Context) error {
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and records the schema
// version. This function is idempotent.
func applySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLiteStore) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
