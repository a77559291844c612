// Package staging owns the private scratch directory that holds the
// decrypted working database while a store is open.
//
// The directory is created with mode 0700 under the system temp dir and
// contains at most two files we manage ourselves (plus SQLite's -wal/-shm
// companions): the working database and a transient backup snapshot.
// Release removes the whole tree and is safe to call more than once, so
// callers can both defer it and call it explicitly on error paths.
package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DatabaseFile is the working database filename inside the area.
	DatabaseFile = "database.db"
	// BackupFile is the snapshot filename written during save.
	BackupFile = "backup.db"

	dirPattern = "vpnutils-*"
)

// Area is an exclusively owned ephemeral directory.
type Area struct {
	dir      string
	released bool
}

// New allocates a fresh, uniquely named directory readable only by the
// current user.
func New() (*Area, error) {
	dir, err := os.MkdirTemp("", dirPattern)
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	// MkdirTemp already uses 0700, but the umask is not ours to trust.
	if err := os.Chmod(dir, 0o700); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("restrict staging directory: %w", err)
	}
	return &Area{dir: dir}, nil
}

// Dir returns the staging directory.
func (a *Area) Dir() string { return a.dir }

// DatabasePath returns the path of the plaintext working database.
func (a *Area) DatabasePath() string { return filepath.Join(a.dir, DatabaseFile) }

// BackupPath returns the path of the transient plaintext snapshot.
func (a *Area) BackupPath() string { return filepath.Join(a.dir, BackupFile) }

// RemoveBackup deletes the snapshot file. A missing file is not an error.
func (a *Area) RemoveBackup() error {
	if err := os.Remove(a.BackupPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove backup snapshot: %w", err)
	}
	return nil
}

// Released reports whether Release has completed.
func (a *Area) Released() bool { return a.released }

// Release removes the directory and everything in it. Only the first call
// does any work.
func (a *Area) Release() error {
	if a == nil || a.released {
		return nil
	}
	if err := os.RemoveAll(a.dir); err != nil {
		return fmt.Errorf("remove staging directory %s: %w", a.dir, err)
	}
	a.released = true
	return nil
}
