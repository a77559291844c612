// Package vault keeps the inventory database encrypted at rest.
//
// The only durable artifact is the encrypted source file. While a Vault is
// open, a plaintext working copy lives in a private staging directory;
// Save snapshots it, encrypts the snapshot and atomically replaces the
// source. Close deletes the staging directory.
//
// Lifecycle:
//
//	Uninitialized -> Staged -> Ready -> Saved
//	                                \-> Closed (from any state)
package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jpl-au/vpnutils/internal/cipher"
	"github.com/jpl-au/vpnutils/internal/staging"
	"github.com/jpl-au/vpnutils/internal/store"
)

// State is the vault lifecycle position.
type State int

const (
	StateUninitialized State = iota
	StateStaged
	StateReady
	StateSaved
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStaged:
		return "staged"
	case StateReady:
		return "ready"
	case StateSaved:
		return "saved"
	case StateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// Options tune a vault.
type Options struct {
	// WorkFactor is the scrypt cost for new envelopes; 0 selects the default.
	WorkFactor int
	// Progress receives one human-readable line per slow step. Nil is quiet.
	Progress io.Writer
}

// Vault is an open encrypted store. Its methods are serialised, but
// nothing stops another process from opening the same source file.
type Vault struct {
	source     string
	passphrase string
	codec      *cipher.Codec
	area       *staging.Area
	progress   io.Writer

	mu       sync.Mutex
	state    State
	handles  []*store.SQLiteStore
	reserved bool // Create holds an empty placeholder at source
}

// live holds every vault that has not been closed, including ones still
// inside Create or Open, so CloseAll can reach them.
var (
	liveMu sync.Mutex
	live   = map[*Vault]struct{}{}
)

// CloseAll closes every vault in the process. A Save in progress finishes
// first; a Create that never saved gives up its placeholder. Used when
// the process is interrupted.
func CloseAll() error {
	liveMu.Lock()
	vs := make([]*Vault, 0, len(live))
	for v := range live {
		vs = append(vs, v)
	}
	liveMu.Unlock()

	var errs []error
	for _, v := range vs {
		errs = append(errs, v.Close())
	}
	return errors.Join(errs...)
}

// validatePath rejects paths that cannot be represented faithfully.
func validatePath(path string) error {
	switch {
	case path == "":
		return newError(KindPathEncoding, "", errors.New("path is empty"))
	case !utf8.ValidString(path):
		return newError(KindPathEncoding, "", errors.New("path is not valid UTF-8"))
	case strings.ContainsRune(path, 0):
		return newError(KindPathEncoding, "", errors.New("path contains NUL"))
	}
	return nil
}

func newVault(source, passphrase string, opts Options) (*Vault, error) {
	if err := validatePath(source); err != nil {
		return nil, err
	}
	codec, err := cipher.New(opts.WorkFactor)
	if err != nil {
		return nil, newError(KindOther, "", err)
	}
	v := &Vault{
		source:     source,
		passphrase: passphrase,
		codec:      codec,
		progress:   opts.Progress,
	}
	liveMu.Lock()
	live[v] = struct{}{}
	liveMu.Unlock()
	return v, nil
}

func (v *Vault) logf(format string, args ...any) {
	if v.progress != nil {
		fmt.Fprintf(v.progress, format+"\n", args...)
	}
}

// step runs fn under the lock unless the vault was closed meanwhile or
// ctx is done. Everything that creates files in the staging area goes
// through step, so Close never races a write into the directory it is
// removing.
func (v *Vault) step(ctx context.Context, fn func() error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateClosed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return newError(KindOther, "", err)
	}
	return fn()
}

func (v *Vault) stage() error {
	area, err := staging.New()
	if err != nil {
		return newError(KindIO, "", err)
	}
	v.area = area
	v.state = StateStaged
	return nil
}

// migrate opens a short-lived handle on the working file and brings its
// schema up to date.
func (v *Vault) migrate(ctx context.Context) error {
	s, err := store.Open(ctx, v.area.DatabasePath())
	if err != nil {
		return newError(KindConnection, "", err)
	}
	defer s.Close()

	v.logf("Running migrations...")
	if _, err := s.Migrate(ctx); err != nil {
		return newError(KindMigration, "", err)
	}
	return nil
}

// Create makes a new encrypted store at source. It never overwrites: if
// source exists the call fails with ErrCreate wrapping fs.ErrExist.
func Create(ctx context.Context, source, passphrase string, opts Options) (*Vault, error) {
	v, err := newVault(source, passphrase, opts)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Vault, error) {
		v.Close()
		return nil, err
	}
	if passphrase == "" {
		return fail(newError(KindEncrypt, "", cipher.ErrEmptyPassphrase))
	}

	// Reserve the name so a concurrent create cannot race us to it. Close
	// removes the reservation until the first Save replaces it.
	err = v.step(ctx, func() error {
		f, err := os.OpenFile(source, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			return newError(KindCreate, source, err)
		}
		v.reserved = true
		return f.Close()
	})
	if err != nil {
		return fail(err)
	}

	err = v.step(ctx, func() error {
		if err := v.stage(); err != nil {
			return err
		}
		if err := v.migrate(ctx); err != nil {
			return err
		}
		v.state = StateReady
		return nil
	})
	if err != nil {
		return fail(err)
	}
	if err := v.Save(ctx); err != nil {
		return fail(err)
	}
	return v, nil
}

// Open decrypts the store at source into a fresh staging area and brings
// its schema up to date. A missing file is ErrOpen wrapping fs.ErrNotExist;
// a wrong passphrase or damaged file is ErrDecrypt.
func Open(ctx context.Context, source, passphrase string, opts Options) (*Vault, error) {
	v, err := newVault(source, passphrase, opts)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Vault, error) {
		v.Close()
		return nil, err
	}

	v.logf("Decrypting database from %s", source)
	plaintext, err := v.codec.DecryptFile(source, passphrase)
	switch {
	case errors.Is(err, cipher.ErrDecrypt), errors.Is(err, cipher.ErrEmptyPassphrase):
		return fail(newError(KindDecrypt, source, err))
	case err != nil:
		return fail(newError(KindOpen, source, err))
	}
	defer clear(plaintext)

	err = v.step(ctx, func() error {
		if err := v.stage(); err != nil {
			return err
		}
		if err := os.WriteFile(v.area.DatabasePath(), plaintext, 0o600); err != nil {
			return newError(KindIO, "", err)
		}
		if err := v.migrate(ctx); err != nil {
			return err
		}
		v.state = StateReady
		return nil
	})
	if err != nil {
		return fail(err)
	}
	return v, nil
}

func (v *Vault) usable() error {
	switch v.state {
	case StateReady, StateSaved:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return newError(KindOther, "", fmt.Errorf("vault is %s", v.state))
	}
}

// Connect returns a new handle on the working database. The vault closes
// every handle it handed out when it is closed; callers may close earlier.
func (v *Vault) Connect(ctx context.Context) (*store.SQLiteStore, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.usable(); err != nil {
		return nil, err
	}
	s, err := store.Open(ctx, v.area.DatabasePath())
	if err != nil {
		return nil, newError(KindConnection, "", err)
	}
	v.handles = append(v.handles, s)
	return s, nil
}

// Save encrypts a consistent snapshot of the working database over source.
// On failure the previous ciphertext is untouched and no plaintext backup
// is left behind.
func (v *Vault) Save(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.usable(); err != nil {
		return err
	}

	s, err := store.Open(ctx, v.area.DatabasePath())
	if err != nil {
		return newError(KindConnection, "", err)
	}
	err = s.Backup(ctx, v.area.BackupPath())
	s.Close()
	if err != nil {
		v.area.RemoveBackup()
		return newError(KindIO, "", err)
	}

	v.logf("Encrypting database to %s", v.source)
	ciphertext, err := v.codec.EncryptFile(v.area.BackupPath(), v.passphrase)
	if err != nil {
		v.area.RemoveBackup()
		if errors.Is(err, cipher.ErrEncrypt) || errors.Is(err, cipher.ErrEmptyPassphrase) {
			return newError(KindEncrypt, v.source, err)
		}
		return newError(KindIO, "", err)
	}

	if err := writeAtomic(v.source, ciphertext); err != nil {
		v.area.RemoveBackup()
		return newError(KindCreate, v.source, err)
	}
	v.reserved = false
	if err := v.area.RemoveBackup(); err != nil {
		return newError(KindIO, "", err)
	}
	v.state = StateSaved
	return nil
}

// writeAtomic replaces path with data through a synced temp file in the
// same directory. A symlink at path is followed, so the link survives and
// its target is replaced.
func writeAtomic(path string, data []byte) error {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() { os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return err
	}
	// Persist the rename. Not every platform can fsync a directory.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

// Path is the store's logical identity: the encrypted source file.
func (v *Vault) Path() string {
	return v.source
}

// State reports the lifecycle position.
func (v *Vault) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Close closes tracked handles and deletes the staging area. It is safe to
// call more than once and does not save.
func (v *Vault) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateClosed {
		return nil
	}
	liveMu.Lock()
	delete(live, v)
	liveMu.Unlock()

	var errs []error
	for _, h := range v.handles {
		if err := h.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	v.handles = nil
	if err := v.area.Release(); err != nil {
		errs = append(errs, newError(KindIO, "", err))
	}
	if v.reserved {
		if err := os.Remove(v.source); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, newError(KindIO, v.source, err))
		}
		v.reserved = false
	}
	v.passphrase = ""
	v.state = StateClosed
	return errors.Join(errs...)
}
