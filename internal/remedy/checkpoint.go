package remedy

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Checkpoint persists scan progress so an interrupted run resumes where it
// left off instead of re-processing handled items. Cheap phases restart
// from zero; the orphan scan records both a row offset and a done-set of
// candidate keys.
type Checkpoint struct {
	db *sql.DB
}

// OpenCheckpoint opens (or creates) the checkpoint database at path.
func OpenCheckpoint(path string) (*Checkpoint, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "checkpoint: exec %s", pragma)
		}
	}

	const migration = `
CREATE TABLE IF NOT EXISTS offsets (
	phase     TEXT PRIMARY KEY,
	offset    INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS done (
	phase TEXT NOT NULL,
	key   TEXT NOT NULL,
	PRIMARY KEY (phase, key)
);
`
	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "checkpoint: migrate")
	}
	return &Checkpoint{db: db}, nil
}

// Close releases the underlying database.
func (c *Checkpoint) Close() error { return c.db.Close() }

// Offset returns the stored scan offset for a phase, 0 if none.
func (c *Checkpoint) Offset(ctx context.Context, phase string) (int64, error) {
	var off int64
	err := c.db.QueryRowContext(ctx, `SELECT offset FROM offsets WHERE phase = ?`, phase).Scan(&off)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "checkpoint: offset %s", phase)
	}
	return off, nil
}

// SetOffset stores the scan offset for a phase.
func (c *Checkpoint) SetOffset(ctx context.Context, phase string, offset int64) error {
	_, err := c.db.ExecContext(ctx, `
INSERT INTO offsets (phase, offset, updated_at) VALUES (?, ?, datetime('now'))
ON CONFLICT(phase) DO UPDATE SET offset = excluded.offset, updated_at = excluded.updated_at`,
		phase, offset)
	return eris.Wrapf(err, "checkpoint: set offset %s", phase)
}

// MarkDone records that a candidate key has been fully handled.
func (c *Checkpoint) MarkDone(ctx context.Context, phase, key string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO done (phase, key) VALUES (?, ?)`, phase, key)
	return eris.Wrapf(err, "checkpoint: mark done %s", phase)
}

// IsDone reports whether a candidate key was handled by a previous run.
func (c *Checkpoint) IsDone(ctx context.Context, phase, key string) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx,
		`SELECT 1 FROM done WHERE phase = ? AND key = ?`, phase, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "checkpoint: is done %s", phase)
	}
	return true, nil
}

// Reset clears all stored progress for a phase.
func (c *Checkpoint) Reset(ctx context.Context, phase string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM offsets WHERE phase = ?`, phase); err != nil {
		return eris.Wrapf(err, "checkpoint: reset offsets %s", phase)
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM done WHERE phase = ?`, phase); err != nil {
		return eris.Wrapf(err, "checkpoint: reset done %s", phase)
	}
	return nil
}
