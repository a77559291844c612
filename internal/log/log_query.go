// log_query.go reads and prunes the audit log for "vpnutils log".

package log

import (
	"database/sql"
	"errors"
	"time"
)

// ErrClosed is returned when the audit log could not be opened.
var ErrClosed = errors.New("audit log is not open")

// Record is one stored audit entry.
type Record struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Store   string    `json:"store"`
	Source  string    `json:"source"`
	Action  string    `json:"action"`
	Rows    int64     `json:"rows,omitempty"`
	Success bool      `json:"success"`
	Kind    string    `json:"kind,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// Filter selects entries. Zero fields match everything.
type Filter struct {
	Store  string    // store id as returned by StoreID
	Before time.Time // entries that started before this instant
	Since  time.Time // entries that started at or after this instant
	Limit  int       // most recent N; Records only
}

// StoreID returns the identifier logged for the store at path. path
// should be absolute, as passed to SetStore.
func StoreID(path string) string { return hash(path) }

func (f Filter) where() (string, []any) {
	q := ` WHERE 1=1`
	var args []any
	if f.Store != "" {
		q += ` AND store = ?`
		args = append(args, f.Store)
	}
	if !f.Before.IsZero() {
		q += ` AND start < ?`
		args = append(args, f.Before.Unix())
	}
	if !f.Since.IsZero() {
		q += ` AND start >= ?`
		args = append(args, f.Since.Unix())
	}
	return q, args
}

func handle() (*sql.DB, error) {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		return nil, ErrClosed
	}
	return global.db, nil
}

// Records returns matching entries, oldest first.
func Records(f Filter) ([]Record, error) {
	db, err := handle()
	if err != nil {
		return nil, err
	}
	where, args := f.where()
	q := `SELECT start, end, store, source, action, rows, success, kind, detail FROM log` + where + ` ORDER BY id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r            Record
			start, end   int64
			n            sql.NullInt64
			success      int
			kind, detail sql.NullString
		)
		if err := rows.Scan(&start, &end, &r.Store, &r.Source, &r.Action, &n, &success, &kind, &detail); err != nil {
			return nil, err
		}
		r.Start, r.End = time.Unix(start, 0), time.Unix(end, 0)
		r.Rows, r.Success = n.Int64, success == 1
		r.Kind, r.Detail = kind.String, detail.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// newest were fetched first so LIMIT keeps the most recent
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Count returns how many entries match f. Limit is ignored.
func Count(f Filter) (int64, error) {
	db, err := handle()
	if err != nil {
		return 0, err
	}
	where, args := f.where()
	var n int64
	err = db.QueryRow(`SELECT COUNT(*) FROM log`+where, args...).Scan(&n)
	return n, err
}

// Prune deletes matching entries and returns how many were removed.
// A zero Before is refused so a prune never empties the log by accident.
func Prune(f Filter) (int64, error) {
	if f.Before.IsZero() {
		return 0, errors.New("prune needs a cutoff")
	}
	db, err := handle()
	if err != nil {
		return 0, err
	}
	where, args := f.where()
	res, err := db.Exec(`DELETE FROM log`+where, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
