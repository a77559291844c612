// sqlite_ops.go provides SQLite connection management and low-level helpers.
//
// This is the only file that imports the SQLite driver. Per-connection
// pragmas are passed through the DSN so every pooled connection gets them,
// not just the first one: foreign key enforcement in SQLite is a
// connection setting, and a pool that silently hands out a connection
// without it would accept dangling references.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore implements Store on a single plaintext working file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// pragmas applied by the driver to every new connection.
var pragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

func dsn(path string) string {
	q := make([]string, len(pragmas))
	for i, p := range pragmas {
		q[i] = "_pragma=" + p
	}
	return path + "?" + strings.Join(q, "&")
}

// Open opens (creating if needed) the SQLite file at path and checks that
// foreign key enforcement is active. The caller must Close the store.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.ContainsAny(path, "?#") {
		return nil, fmt.Errorf("open database %s: path must not contain '?' or '#'", path)
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	var fk int
	if err := db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading foreign_keys pragma: %w", err)
	}
	if fk != 1 {
		db.Close()
		return nil, fmt.Errorf("foreign key enforcement is not active on %s", path)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Migrate brings the schema up to date with the default migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) (MigrationResult, error) {
	steps, err := DefaultMigrations()
	if err != nil {
		return MigrationResult{}, err
	}
	m, err := NewMigrator(steps)
	if err != nil {
		return MigrationResult{}, err
	}
	return m.Run(ctx, s.db)
}

// SchemaVersion returns the applied migration version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	return (&Migrator{}).Version(ctx, s.db)
}

// Close checkpoints the WAL into the main file and releases the pool.
func (s *SQLiteStore) Close() error {
	// PASSIVE copies what it can without waiting, so closing a handle
	// never stalls on another handle's open transaction.
	_, _ = s.db.Exec(`PRAGMA wal_checkpoint(PASSIVE)`)
	return s.db.Close()
}

// DB exposes the underlying pool.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Path returns the working file this store was opened on.
func (s *SQLiteStore) Path() string {
	return s.path
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by *sql.DB and *sql.Tx so existence checks can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx executes fn within a transaction. fn's error triggers a rollback;
// otherwise the transaction is committed.
//
//	err := s.Tx(ctx, func(tx *sql.Tx) error {
//	    _, err := tx.ExecContext(ctx, `DELETE ...`)
//	    return err
//	})
func (s *SQLiteStore) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// exists reports whether q returns at least one row.
func exists(ctx context.Context, db querier, q string, args ...any) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `SELECT EXISTS(`+q+`)`, args...).Scan(&one)
	if err != nil {
		return false, err
	}
	return one == 1, nil
}

// constraintErr maps SQLite constraint failures onto the package sentinels.
// Any other error is returned unchanged.
func constraintErr(err error, what string) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, what)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %s", ErrConstraint, what)
	case sqlite3.SQLITE_CONSTRAINT:
		// primary result code only; fall back to the message
		msg := se.Error()
		switch {
		case strings.Contains(msg, "UNIQUE constraint failed"):
			return fmt.Errorf("%w: %s", ErrAlreadyExists, what)
		case strings.Contains(msg, "FOREIGN KEY constraint failed"):
			return fmt.Errorf("%w: %s", ErrConstraint, what)
		}
	}
	return err
}

// nullString stores "" as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// collect drains rows through scan.
func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
