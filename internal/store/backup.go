// backup.go implements WAL checkpointing and the snapshot backup.
//
// The working file runs in WAL mode, so committed rows may still live in
// the -wal file. Backup does not depend on a checkpoint: VACUUM INTO reads
// through the WAL and writes a single self-contained database image.

package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Checkpoint writes all WAL data back to the main database file and
// truncates the WAL.
func (s *SQLiteStore) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}
	return nil
}

// Backup writes a transactionally consistent copy of the database to dest.
// Other handles may keep reading while it runs. A stale file at dest is
// removed first because VACUUM INTO refuses to overwrite.
func (s *SQLiteStore) Backup(ctx context.Context, dest string) error {
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale backup %s: %w", dest, err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM main INTO ?`, dest); err != nil {
		return fmt.Errorf("backup to %s: %w", dest, err)
	}
	return nil
}
