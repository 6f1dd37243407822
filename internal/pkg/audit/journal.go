// Package audit keeps an append-only sqlite journal of relay lifecycle
// events and executed commands.  The journal is history only: nothing in it
// is ever used to rebuild the relay registry.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pkg/errors"

	"github.com/jake-scott/raki/internal/pkg/logging"
	"github.com/jake-scott/raki/internal/pkg/manager"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

const schema = `
CREATE TABLE IF NOT EXISTS relay_journal (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	relay_id   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	action     TEXT NOT NULL,
	command    TEXT,
	args       TEXT,
	previous   TEXT NOT NULL,
	current    TEXT NOT NULL,
	source     TEXT,
	error      TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_relay_journal_relay ON relay_journal (relay_id, id);
`

// Entry is one row of the journal
type Entry struct {
	ID        int64     `json:"id" yaml:"id"`
	RelayID   string    `json:"relay" yaml:"relay"`
	Kind      string    `json:"kind" yaml:"kind"`
	Action    string    `json:"action" yaml:"action"`
	Command   string    `json:"command,omitempty" yaml:"command,omitempty"`
	Args      []string  `json:"args,omitempty" yaml:"args,omitempty"`
	Previous  string    `json:"previous" yaml:"previous"`
	Current   string    `json:"current" yaml:"current"`
	Source    string    `json:"source,omitempty" yaml:"source,omitempty"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt time.Time `json:"time" yaml:"time"`
}

// Filter selects journal rows, newest first
type Filter struct {
	RelayID string
	Limit   int
}

// Journal is a manager.Observer writing every event to sqlite
type Journal struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal database at path
func Open(ctx context.Context, path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, errors.Wrap(err, "creating journal directory")
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening journal %s", path)
	}

	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "creating journal schema in %s", path)
	}

	return &Journal{db: db, path: path}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Observe records a manager event
func (j *Journal) Observe(ctx context.Context, ev manager.Event) error {
	e := Entry{
		RelayID:   ev.RelayID,
		Kind:      ev.Kind.Name(),
		Action:    ev.Type.String(),
		Previous:  ev.Previous.Name(),
		Current:   ev.Current.Name(),
		Source:    logging.Source(ctx),
		CreatedAt: ev.Time,
	}
	if ev.Command != nil {
		e.Command = ev.Command.Type.Name()
		e.Args = ev.Command.Args
	}
	if ev.Err != nil {
		e.Error = ev.Err.Error()
	}

	return j.Record(ctx, &e)
}

// Record appends e to the journal and fills in its ID
func (j *Journal) Record(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	var args *string
	if len(e.Args) > 0 {
		b, err := json.Marshal(e.Args)
		if err != nil {
			return errors.Wrap(err, "encoding command arguments")
		}
		s := string(b)
		args = &s
	}

	res, err := j.db.ExecContext(ctx,
		`INSERT INTO relay_journal (relay_id, kind, action, command, args, previous, current, source, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RelayID, e.Kind, e.Action,
		nullableString(e.Command), args,
		e.Previous, e.Current,
		nullableString(e.Source), nullableString(e.Error),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.Wrap(err, "inserting journal entry")
	}

	if e.ID, err = res.LastInsertId(); err != nil {
		return errors.Wrap(err, "reading journal entry id")
	}

	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// List returns the newest entries matching f
func (j *Journal) List(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}

	var conditions []string
	var args []interface{}
	if f.RelayID != "" {
		conditions = append(conditions, "relay_id = ?")
		args = append(args, f.RelayID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(
		"SELECT id, relay_id, kind, action, command, args, previous, current, source, error, created_at FROM relay_journal %s ORDER BY id DESC LIMIT ?",
		where,
	)
	args = append(args, f.Limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying journal")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var cmd, argsJSON, source, errText sql.NullString
		var created string

		if err := rows.Scan(&e.ID, &e.RelayID, &e.Kind, &e.Action, &cmd, &argsJSON,
			&e.Previous, &e.Current, &source, &errText, &created); err != nil {
			return nil, errors.Wrap(err, "scanning journal entry")
		}

		e.Command = cmd.String
		e.Source = source.String
		e.Error = errText.String
		if argsJSON.Valid {
			if err := json.Unmarshal([]byte(argsJSON.String), &e.Args); err != nil {
				return nil, errors.Wrapf(err, "decoding arguments of journal entry %d", e.ID)
			}
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, errors.Wrapf(err, "parsing time of journal entry %d", e.ID)
		}

		entries = append(entries, e)
	}

	return entries, errors.Wrap(rows.Err(), "reading journal")
}
