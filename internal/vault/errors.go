package vault

import (
	"errors"
	"fmt"
)

// Kind classifies vault failures.
type Kind int

const (
	KindOther Kind = iota
	KindPathEncoding
	KindOpen
	KindCreate
	KindIO
	KindConnection
	KindMigration
	KindEncrypt
	KindDecrypt
)

var kindNames = map[Kind]string{
	KindOther:        "other",
	KindPathEncoding: "path_encoding",
	KindOpen:         "open",
	KindCreate:       "create",
	KindIO:           "io",
	KindConnection:   "connection",
	KindMigration:    "migration",
	KindEncrypt:      "encrypt",
	KindDecrypt:      "decrypt",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type returned by the vault. Path is set when
// the failure concerns a specific file.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrPathEncoding = &Error{Kind: KindPathEncoding}
	ErrOpen         = &Error{Kind: KindOpen}
	ErrCreate       = &Error{Kind: KindCreate}
	ErrIO           = &Error{Kind: KindIO}
	ErrConnection   = &Error{Kind: KindConnection}
	ErrMigration    = &Error{Kind: KindMigration}
	ErrEncrypt      = &Error{Kind: KindEncrypt}
	ErrDecrypt      = &Error{Kind: KindDecrypt}
	ErrOther        = &Error{Kind: KindOther}

	// ErrClosed is returned by every operation on a closed vault.
	ErrClosed = &Error{Kind: KindOther, Err: errors.New("vault is closed")}
)

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindPathEncoding:
		msg = "invalid database path"
	case KindOpen:
		msg = "cannot open database file"
	case KindCreate:
		msg = "cannot create database file"
	case KindIO:
		msg = "i/o error"
	case KindConnection:
		msg = "cannot connect to working database"
	case KindMigration:
		msg = "migration failed"
	case KindEncrypt:
		msg = "encryption failed"
	case KindDecrypt:
		msg = "invalid password or corrupt file"
	default:
		msg = "vault error"
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Err != nil || t.Path != "" {
		return false
	}
	return t.Kind == e.Kind
}

// KindName names the failure without exposing paths or causes, for the
// audit log.
func (e *Error) KindName() string {
	return e.Kind.String()
}

func newError(k Kind, path string, err error) *Error {
	return &Error{Kind: k, Path: path, Err: err}
}
