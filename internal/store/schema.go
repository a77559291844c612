// schema.go holds the embedded migration files and the package errors.
//
// Each table lives in its own numbered file under sql/. The numbers are
// informational; the authoritative order is the explicit table in
// DefaultMigrations, so a rename or a stray file cannot reorder history.

package store

import (
	"embed"
	"errors"
)

//go:embed sql/*.sql
var schemas embed.FS

var (
	// ErrNotFound indicates the requested row does not exist, including a
	// missing owner (network, VPN or peer) named by a child operation.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a primary key is already taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrHasChildren rejects removing a network or VPN that still owns rows
	// when cascade was not requested.
	ErrHasChildren = errors.New("still has dependent records")
	// ErrConstraint wraps a foreign key violation reported by SQLite.
	ErrConstraint = errors.New("constraint violation")
	// ErrInvalidStatus is returned for a peer status outside the enumeration.
	ErrInvalidStatus = errors.New("invalid peer status")
	// ErrSamePeer rejects a preshared key between a peer and itself.
	ErrSamePeer = errors.New("preshared key requires two distinct peers")
	// ErrMigration wraps every failure of the migration runner.
	ErrMigration = errors.New("migration error")
)
