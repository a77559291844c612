/*
Copyright © 2026 James Lawson (jpl-au) <hello@caelisco.net>
*/

// session.go opens the encrypted store and wires it into the extensions.
//
// Extensions register during init() but aren't initialised until a command
// that needs the store runs. The first such command resolves the store
// path, asks for the passphrase, decrypts into a private staging
// directory and hands every extension one shared Context. The session is
// closed, and its plaintext deleted, when the process exits.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/jpl-au/vpnutils/extension"
	"github.com/jpl-au/vpnutils/internal/config"
	"github.com/jpl-au/vpnutils/internal/inventory"
	"github.com/jpl-au/vpnutils/internal/log"
	"github.com/jpl-au/vpnutils/internal/progress"
	"github.com/jpl-au/vpnutils/internal/vault"
)

// ErrNoDatabase is returned when no store path was given anywhere.
var ErrNoDatabase = errors.New("no store given: use --database, " + EnvStore + ", " + EnvDatabase + " or 'vpnutils config database.path <file>'")

// noStoreCommands lists commands that bypass automatic store opening.
// Built from bootstrap commands plus extension-declared storeless commands.
var noStoreCommands map[string]bool

// buildNoStoreCommands creates the set of commands that skip store opening.
//
// Bootstrap commands must work before a store exists: "vpnutils guide"
// shouldn't ask for a passphrase. Extensions add their own through the
// Storeless interface.
func buildNoStoreCommands() map[string]bool {
	cmds := map[string]bool{
		"help":       true,
		"completion": true,
	}
	for _, ext := range extension.All() {
		if s, ok := ext.(extension.Storeless); ok {
			for _, name := range s.NoStoreCommands() {
				cmds[name] = true
			}
		}
	}
	return cmds
}

// session is the open store shared by every command in this process.
type session struct {
	vault *vault.Vault
	svc   *inventory.Service
	ext   extension.Context
}

var (
	sessMu   sync.Mutex
	sess     *session
	initOnce sync.Once
	initErr  error
)

// initExtensions opens the store once per process and injects the session
// context into all Initializable extensions.
func initExtensions(ctx context.Context) error {
	initOnce.Do(func() {
		initErr = openSession(ctx)
	})
	return initErr
}

func openSession(ctx context.Context) error {
	path := Database()
	if path == "" {
		return ErrNoDatabase
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if abs, err := filepath.Abs(path); err == nil {
		log.SetStore(abs)
	}

	pass, err := Passphrase(path)
	if err != nil {
		return err
	}

	sp := progress.NewSpinner("Decrypting " + path)
	sp.Start()
	v, err := vault.Open(ctx, path, pass, vault.Options{WorkFactor: cfg.WorkFactor()})
	sp.Stop()
	log.Event("vault:open", "open").Write(err)

	switch {
	case errors.Is(err, vault.ErrOpen) && errors.Is(err, fs.ErrNotExist):
		if !Confirm(fmt.Sprintf("No store at %s. Create it?", path)) {
			return fmt.Errorf("no store at %s (run 'vpnutils create -d %s' to make one)", path, path)
		}
		v, err = CreateStore(ctx, path, cfg)
		if err != nil {
			return err
		}
	case errors.Is(err, vault.ErrDecrypt):
		return fmt.Errorf("%s: invalid password or corrupt file", path)
	case err != nil:
		return err
	}

	return attach(ctx, v, cfg)
}

// CreateStore makes a new encrypted store at path and returns it open.
// The passphrase is asked for twice when prompting.
func CreateStore(ctx context.Context, path string, cfg *config.Config) (*vault.Vault, error) {
	if abs, err := filepath.Abs(path); err == nil {
		log.SetStore(abs)
	}
	pass, err := NewPassphrase(path)
	if err != nil {
		return nil, err
	}

	sp := progress.NewSpinner("Encrypting " + path)
	sp.Start()
	v, err := vault.Create(ctx, path, pass, vault.Options{WorkFactor: cfg.WorkFactor()})
	sp.Stop()
	log.Event("vault:create", "create").Detail("work_factor", cfg.WorkFactor()).Write(err)
	if err != nil {
		if errors.Is(err, vault.ErrCreate) && errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%s already exists; refusing to overwrite it", path)
		}
		return nil, err
	}
	return v, nil
}

// attach builds the inventory service over v and initialises extensions.
func attach(ctx context.Context, v *vault.Vault, cfg *config.Config) error {
	st, err := v.Connect(ctx)
	if err != nil {
		v.Close()
		return err
	}
	svc := inventory.New(st, inventory.Options{
		PrefixV4: cfg.VpnPrefixV4(),
		PrefixV6: cfg.VpnPrefixV6(),
	})
	ext, err := extension.NewContext(ctx, svc, v, cfg)
	if err != nil {
		svc.Close()
		v.Close()
		return err
	}
	svc.SetExtensionContext(ext)

	sessMu.Lock()
	sess = &session{vault: v, svc: svc, ext: ext}
	sessMu.Unlock()

	for _, e := range extension.All() {
		if init, ok := e.(extension.Initializable); ok {
			if err := init.Init(ext); err != nil {
				return fmt.Errorf("init extension %s: %w", e.Name(), err)
			}
		}
	}
	return nil
}

// Session returns the open session context, or nil before a store is open.
func Session() extension.Context {
	sessMu.Lock()
	defer sessMu.Unlock()
	if sess == nil {
		return nil
	}
	return sess.ext
}

// closeSession closes the service and vault, deleting the plaintext
// working copy. Unsaved changes are discarded. Safe to call repeatedly.
func closeSession() error {
	sessMu.Lock()
	s := sess
	sess = nil
	sessMu.Unlock()
	if s == nil {
		return nil
	}
	return errors.Join(s.svc.Close(), s.vault.Close())
}

var extensionsOnce sync.Once

// registerExtensions adds commands from all registered extensions.
// Called once before Execute runs.
func registerExtensions() {
	extensionsOnce.Do(func() {
		for _, ext := range extension.All() {
			for _, c := range ext.Commands() {
				rootCmd.AddCommand(c)
			}
		}
		noStoreCommands = buildNoStoreCommands()
	})
}
