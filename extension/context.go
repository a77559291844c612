// context.go defines the Context interface for extension access to the
// open store session.
//
// Separated from extension.go to isolate dependency injection concerns.
// Extensions receive Context during Init(), not at construction: they
// register before any store is open.
//
// The context also tracks unsaved changes. It keeps a logical dump of the
// inventory as of the last open or save and compares the current dump
// against it, so an add followed by a remove of the same record counts as
// no change.

package extension

import (
	"context"
	"fmt"
	"sync"

	"github.com/jpl-au/vpnutils/internal/config"
	"github.com/jpl-au/vpnutils/internal/diff"
	"github.com/jpl-au/vpnutils/internal/service"
)

// Vault is the part of the encrypted store an extension may drive.
type Vault interface {
	// Path returns the encrypted file the session writes to.
	Path() string
	// Save re-encrypts the working copy over Path.
	Save(ctx context.Context) error
}

// Context provides extensions controlled access to the open store.
type Context interface {
	// Service returns the inventory service for record operations.
	Service() service.Service

	// Vault returns the encrypted store behind the service.
	Vault() Vault

	// Config returns user configuration.
	Config() *config.Config

	// Save persists the working copy and resets the unsaved baseline.
	Save(ctx context.Context) error

	// Unsaved reports whether the working copy differs from what was last
	// opened or saved.
	Unsaved(ctx context.Context) (bool, error)

	// Changes diffs the last opened or saved inventory against the working
	// copy. Secrets appear only as fingerprints.
	Changes(ctx context.Context) (diff.Result, error)
}

// extContext implements Context.
type extContext struct {
	svc service.Service
	v   Vault
	cfg *config.Config

	mu       sync.Mutex
	baseline string
}

// NewContext creates a session context, taking the current inventory as
// the saved baseline.
func NewContext(ctx context.Context, svc service.Service, v Vault, cfg *config.Config) (Context, error) {
	base, err := svc.Dump(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot inventory: %w", err)
	}
	return &extContext{svc: svc, v: v, cfg: cfg, baseline: base}, nil
}

func (c *extContext) Service() service.Service { return c.svc }
func (c *extContext) Vault() Vault             { return c.v }
func (c *extContext) Config() *config.Config   { return c.cfg }

func (c *extContext) Save(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, err := c.svc.Dump(ctx)
	if err != nil {
		return fmt.Errorf("snapshot inventory: %w", err)
	}
	if err := c.v.Save(ctx); err != nil {
		return err
	}
	c.baseline = cur
	return nil
}

func (c *extContext) Unsaved(ctx context.Context) (bool, error) {
	cur, err := c.svc.Dump(ctx)
	if err != nil {
		return false, fmt.Errorf("snapshot inventory: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return cur != c.baseline, nil
}

func (c *extContext) Changes(ctx context.Context) (diff.Result, error) {
	cur, err := c.svc.Dump(ctx)
	if err != nil {
		return diff.Result{}, fmt.Errorf("snapshot inventory: %w", err)
	}
	c.mu.Lock()
	base := c.baseline
	c.mu.Unlock()
	return diff.Compute(base, cur, "saved", "working"), nil
}
