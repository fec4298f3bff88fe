package sector

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/dris-project/impact-engine/internal/model"
)

// Cache is a local sqlite snapshot of the sector taxonomy. It lets the
// CLI expand subtrees without a database connection and takes the
// repeated child lookups off the primary store.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (or creates) the sqlite snapshot at path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sector: open cache")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sector: exec %s", pragma)
		}
	}
	return &Cache{db: db}, nil
}

const cacheMigration = `
CREATE TABLE IF NOT EXISTS sectors (
	id        INTEGER PRIMARY KEY,
	parent_id INTEGER,
	name      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sectors_parent_id ON sectors(parent_id);

CREATE TABLE IF NOT EXISTS cache_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Migrate creates the snapshot schema.
func (c *Cache) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, cacheMigration)
	return eris.Wrap(err, "sector: migrate cache")
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Replace swaps the snapshot for a fresh copy of the taxonomy and stamps
// the sync time.
func (c *Cache) Replace(ctx context.Context, sectors []model.Sector) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sector: begin cache replace")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sectors`); err != nil {
		return eris.Wrap(err, "sector: clear cache")
	}
	for _, sec := range sectors {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sectors (id, parent_id, name) VALUES (?, ?, ?)`,
			sec.ID, sec.ParentID, sec.Name,
		); err != nil {
			return eris.Wrapf(err, "sector: cache insert %d", sec.ID)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache_meta (key, value) VALUES ('synced_at', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return eris.Wrap(err, "sector: stamp sync time")
	}

	return eris.Wrap(tx.Commit(), "sector: commit cache replace")
}

// SyncedAt returns the last snapshot time, or the zero time if the cache
// has never been synced.
func (c *Cache) SyncedAt(ctx context.Context) (time.Time, error) {
	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT value FROM cache_meta WHERE key = 'synced_at'`).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, eris.Wrap(err, "sector: read sync time")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, eris.Wrap(err, "sector: parse sync time")
	}
	return t, nil
}

// SectorsByParent implements Lookup against the snapshot.
func (c *Cache) SectorsByParent(ctx context.Context, parentID int64) ([]int64, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id FROM sectors WHERE parent_id = ? ORDER BY id`, parentID)
	if err != nil {
		return nil, eris.Wrapf(err, "sector: cache children of %d", parentID)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sector: scan cached child id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sector: iterate cached children")
}
