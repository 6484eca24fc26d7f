// Package history keeps a local sqlite log of what each run did: books
// ordered, coins purchased, books downloaded, series followed/unfollowed.
// It is informational only; the ledgers remain the source of truth.
package history

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jncsync/jncsync/internal/utils"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id          INTEGER PRIMARY KEY,
  started_at  DATETIME NOT NULL,
  user_name   TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS events (
  id          INTEGER PRIMARY KEY,
  run_id      INTEGER NOT NULL REFERENCES runs(id),
  occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  kind        TEXT NOT NULL CHECK (kind IN ('followed','unfollowed','ordered','coins_purchased','downloaded')),
  book_id     TEXT NOT NULL DEFAULT '',
  title       TEXT NOT NULL DEFAULT '',
  detail      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
CREATE INDEX IF NOT EXISTS idx_events_time ON events(occurred_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// StartRun records a new run and returns a RunLog bound to it.
func (d *DB) StartRun(ctx context.Context, startedAt time.Time, userName string) (*RunLog, error) {
	res, err := d.sql.ExecContext(ctx, `INSERT INTO runs(started_at, user_name) VALUES(?, ?)`, startedAt.UTC(), userName)
	if err != nil {
		return nil, err
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &RunLog{db: d, runID: runID}, nil
}

// Event is one recorded run event.
type Event struct {
	RunID      int64
	OccurredAt time.Time
	Kind       string
	BookID     string
	Title      string
	Detail     string
}

// RecentEvents returns the newest events, most recent first.
func (d *DB) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT run_id, occurred_at, kind, book_id, title, detail FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var occurredAtStr string
		if err := rows.Scan(&e.RunID, &occurredAtStr, &e.Kind, &e.BookID, &e.Title, &e.Detail); err != nil {
			return nil, err
		}
		// Parse SQLite CURRENT_TIMESTAMP format
		if t, perr := time.Parse("2006-01-02 15:04:05", occurredAtStr); perr == nil {
			e.OccurredAt = t.UTC()
		} else if t2, perr2 := time.Parse(time.RFC3339, occurredAtStr); perr2 == nil {
			e.OccurredAt = t2.UTC()
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// RunLog records events against one run. Failures are logged and swallowed;
// a broken history DB must never interrupt a sync.
type RunLog struct {
	db    *DB
	runID int64
}

func (l *RunLog) Event(ctx context.Context, kind, bookID, title, detail string) {
	if l == nil {
		return
	}
	_, err := l.db.sql.ExecContext(ctx,
		`INSERT INTO events(run_id, kind, book_id, title, detail) VALUES(?, ?, ?, ?, ?)`,
		l.runID, kind, bookID, title, detail)
	if err != nil {
		utils.Log.Debugf("recording %s event: %v", kind, err)
	}
}
