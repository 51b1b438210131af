// Package history is an optional, additive audit trail for process
// lifecycle events (start/stop/crash/restart), backed by SQLite. It is
// not the catalog of record - that remains the JSON file in
// internal/catalog - but lets an operator ask how many times a process
// restarted in the last day, the way the teacher's internal/store/sqlite
// supports its own Record model.
package history

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	d.SetMaxOpenConns(1)
	if _, err := d.Exec("PRAGMA busy_timeout=3000;"); err != nil {
		_ = d.Close()
		return nil, err
	}
	h := &DB{db: d}
	if err := h.ensureSchema(context.Background()); err != nil {
		_ = d.Close()
		return nil, err
	}
	return h, nil
}

func (h *DB) ensureSchema(ctx context.Context) error {
	_, err := h.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS process_events(
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	process_id TEXT NOT NULL,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	exit_code INTEGER NULL,
	occurred_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_process_events_process_id ON process_events(process_id);
`)
	return err
}

func (h *DB) Close() error { return h.db.Close() }

// RecordEvent implements supervisor.Recorder. It is best-effort: a
// history write failure must never affect process supervision, so
// errors are swallowed here rather than propagated.
func (h *DB) RecordEvent(id, name, kind string, exitCode *int) {
	var ec sql.NullInt64
	if exitCode != nil {
		ec = sql.NullInt64{Int64: int64(*exitCode), Valid: true}
	}
	_, _ = h.db.Exec(`
INSERT INTO process_events(process_id, name, kind, exit_code, occurred_at)
VALUES(?, ?, ?, ?, ?);`,
		id, name, kind, ec, time.Now().UTC())
}

func (h *DB) RestartCount(ctx context.Context, id string, since time.Time) (int, error) {
	row := h.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM process_events
WHERE process_id = ? AND kind = 'restart' AND occurred_at >= ?;`,
		id, since.UTC())
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (h *DB) Recent(ctx context.Context, id string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.QueryContext(ctx, `
SELECT kind, exit_code, occurred_at FROM process_events
WHERE process_id = ?
ORDER BY occurred_at DESC
LIMIT ?;`, id, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]Event, 0, limit)
	for rows.Next() {
		var e Event
		var ec sql.NullInt64
		if err := rows.Scan(&e.Kind, &ec, &e.OccurredAt); err != nil {
			return nil, err
		}
		if ec.Valid {
			v := int(ec.Int64)
			e.ExitCode = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type Event struct {
	Kind       string    `json:"kind"`
	ExitCode   *int      `json:"exit_code,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
