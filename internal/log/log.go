// Package log provides centralised audit logging for vpnutils operations.
// Logs are stored in ~/.vpnutils/log/vpnutils-log.db and record which
// commands ran against which store, and whether they succeeded.
//
// Nothing from inside an encrypted store is ever written here: no names,
// addresses or keys. A store is identified by a hash of its path, and a
// failure is recorded by error kind, never by message.
//
// # Fluent API
//
//	log.Event("network:add", "write").
//		Rows(1).
//		Write(err)
//
//	log.Event("vault:open", "open").
//		Detail("migrations", res.Applied).
//		Write(err)
//
// The source parameter follows the format "{extension}:{command}" for CLI
// commands or "vault:{step}" for store lifecycle steps.
package log

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var (
	global *Logger
	mu     sync.Mutex
)

// Entry represents a single log entry.
type Entry struct {
	Source string // e.g., "peer:add", "vault:save"
	Action string // verb: read, write, delete, open, save, etc.
	Rows   int64  // rows touched, cascades included

	// Timing
	Start int64 // unix timestamp when Event() called
	End   int64 // unix timestamp when Write() called

	Success bool           // whether operation succeeded
	Kind    string         // error kind if failed
	Detail  map[string]any // additional operation-specific data
}

// Builder constructs a log entry using a fluent API.
// Create with [Event], chain methods to set fields, then call [Builder.Write]
// to write the entry.
type Builder struct {
	entry Entry
}

// Event creates a new log entry builder for an operation.
//
// The action describes what operation was performed:
//   - "read", "write", "delete", "list", "open", "save", "create", etc.
func Event(source, action string) *Builder {
	return &Builder{
		entry: Entry{
			Source: source,
			Action: action,
			Start:  time.Now().Unix(),
		},
	}
}

// Rows sets how many rows the operation touched.
func (b *Builder) Rows(n int64) *Builder {
	b.entry.Rows = n
	return b
}

// Detail adds a key-value pair to the log entry's detail map.
//
// Values must not carry store contents. Counts, flags and versions are
// fine; names and addresses are not.
func (b *Builder) Detail(key string, value any) *Builder {
	if b.entry.Detail == nil {
		b.entry.Detail = make(map[string]any)
	}
	b.entry.Detail[key] = value
	return b
}

// Write writes the log entry to the database, deriving success/failure from err.
//
// A failed entry records only the error's kind. Errors carrying a kind
// (such as vault errors) provide it through a KindName method; anything
// else is recorded as "error".
func (b *Builder) Write(err error) {
	b.entry.End = time.Now().Unix()
	b.entry.Success = err == nil
	if err != nil {
		b.entry.Kind = KindOf(err)
	}
	Log(b.entry)
}

// KindOf returns the loggable kind of err.
func KindOf(err error) string {
	var k interface{ KindName() string }
	if errors.As(err, &k) {
		return k.KindName()
	}
	return "error"
}

// Open initialises the global logger. Safe to call multiple times.
// Errors are returned but callers may choose to ignore them (best-effort logging).
func Open() error {
	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		return nil
	}

	p := dbPath()
	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return err
	}

	global = &Logger{db: db}
	return nil
}

// SetStore sets the store identifier for subsequent log entries. path
// should be the absolute path of the encrypted store file.
func SetStore(path string) {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.store = hash(path)
	}
}

// Log writes an entry. Safe to call if logger not initialised (no-op).
func Log(e Entry) {
	mu.Lock()
	l := global
	mu.Unlock()

	if l == nil {
		return
	}
	l.log(e)
}

// Close closes the global logger.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		global.db.Close()
		global = nil
	}
}
