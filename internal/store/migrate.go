// migrate.go implements the schema migration runner.
//
// Migrations are an explicit ordered list. Run applies every pending step
// in one transaction and records each in schema_migrations, then mirrors
// the latest version into PRAGMA user_version. SQLite DDL is
// transactional, so a failing step leaves the database at the version it
// had before Run was called.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Migration is one schema step.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationResult describes what a Run did.
type MigrationResult struct {
	From    int
	To      int
	Applied []Migration
}

// migrationFiles is the authoritative order of the embedded schema files.
var migrationFiles = []struct {
	name string
	file string
}{
	{"networks", "001_networks.sql"},
	{"vpns", "002_vpns.sql"},
	{"peer_statuses", "003_peer_statuses.sql"},
	{"peers", "004_peers.sql"},
	{"allowed_ips", "005_allowed_ips.sql"},
	{"preshared_keys", "006_preshared_keys.sql"},
}

// DefaultMigrations loads the built-in migration list.
func DefaultMigrations() ([]Migration, error) {
	out := make([]Migration, 0, len(migrationFiles))
	for i, f := range migrationFiles {
		data, err := schemas.ReadFile("sql/" + f.file)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrMigration, f.file, err)
		}
		out = append(out, Migration{Version: i + 1, Name: f.name, SQL: string(data)})
	}
	return out, nil
}

// Migrator applies a fixed list of migrations.
type Migrator struct {
	steps []Migration
}

// NewMigrator validates that steps are numbered 1..N in order.
func NewMigrator(steps []Migration) (*Migrator, error) {
	for i, m := range steps {
		if m.Version != i+1 {
			return nil, fmt.Errorf("%w: migration %q has version %d, expected %d",
				ErrMigration, m.Name, m.Version, i+1)
		}
		if m.SQL == "" {
			return nil, fmt.Errorf("%w: migration %d (%s) is empty", ErrMigration, m.Version, m.Name)
		}
	}
	return &Migrator{steps: steps}, nil
}

// Latest is the version a fully migrated database reports.
func (m *Migrator) Latest() int {
	return len(m.steps)
}

const migrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INTEGER PRIMARY KEY NOT NULL,
    name       TEXT NOT NULL,
    applied_at INTEGER NOT NULL
)`

// Version returns the highest applied migration, or 0 for a fresh database.
func (m *Migrator) Version(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	if err != nil {
		// a database that never ran migrations has no bookkeeping table
		var n int
		if qerr := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'`).Scan(&n); qerr == nil && n == 0 {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: read version: %w", ErrMigration, err)
	}
	return v, nil
}

// Run applies all pending migrations. Calling it on an up-to-date database
// is a no-op.
func (m *Migrator) Run(ctx context.Context, db *sql.DB) (MigrationResult, error) {
	var res MigrationResult

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("%w: begin: %w", ErrMigration, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migrationsTable); err != nil {
		return res, fmt.Errorf("%w: create schema_migrations: %w", ErrMigration, err)
	}

	applied, err := appliedVersions(ctx, tx)
	if err != nil {
		return res, err
	}
	if len(applied) > len(m.steps) {
		return res, fmt.Errorf("%w: database is at version %d, newer than this binary (%d)",
			ErrMigration, len(applied), len(m.steps))
	}
	for i, v := range applied {
		if v != i+1 {
			return res, fmt.Errorf("%w: applied history is not contiguous at version %d", ErrMigration, v)
		}
	}

	res.From = len(applied)
	res.To = res.From
	now := time.Now().Unix()
	for _, step := range m.steps[res.From:] {
		if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
			return MigrationResult{From: res.From, To: res.From},
				fmt.Errorf("%w: apply %d (%s): %w", ErrMigration, step.Version, step.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			step.Version, step.Name, now); err != nil {
			return MigrationResult{From: res.From, To: res.From},
				fmt.Errorf("%w: record %d: %w", ErrMigration, step.Version, err)
		}
		res.Applied = append(res.Applied, step)
		res.To = step.Version
	}
	if len(res.Applied) == 0 {
		return res, nil
	}

	// PRAGMA does not take bound parameters; To is an int.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, res.To)); err != nil {
		return MigrationResult{From: res.From, To: res.From},
			fmt.Errorf("%w: set user_version: %w", ErrMigration, err)
	}
	if err := tx.Commit(); err != nil {
		return MigrationResult{From: res.From, To: res.From},
			fmt.Errorf("%w: commit: %w", ErrMigration, err)
	}
	return res, nil
}

func appliedVersions(ctx context.Context, tx *sql.Tx) ([]int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("%w: read applied: %w", ErrMigration, err)
	}
	vs, err := collect(rows, func(sc scanner) (int, error) {
		var v int
		return v, sc.Scan(&v)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read applied: %w", ErrMigration, err)
	}
	return vs, nil
}
