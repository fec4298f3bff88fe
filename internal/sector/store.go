package sector

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/dris-project/impact-engine/internal/db"
	"github.com/dris-project/impact-engine/internal/model"
)

// Store reads the sector taxonomy from Postgres.
type Store struct {
	pool db.Pool
}

// NewStore creates a sector Store.
func NewStore(pool db.Pool) *Store {
	return &Store{pool: pool}
}

// SectorsByParent implements Lookup.
func (s *Store) SectorsByParent(ctx context.Context, parentID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM sectors WHERE parent_id = $1 ORDER BY id`, parentID)
	if err != nil {
		return nil, eris.Wrapf(err, "sector: query children of %d", parentID)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sector: scan child id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sector: iterate children")
	}
	return ids, nil
}

// ExpandCTE resolves the subtree in a single round trip using a
// recursive CTE. Equivalent to Resolver.Expand over the same table; kept
// for callers that want the set without N round trips.
func (s *Store) ExpandCTE(ctx context.Context, root int64) (IDSet, error) {
	rows, err := s.pool.Query(ctx, `
		WITH RECURSIVE subtree AS (
			SELECT id FROM sectors WHERE id = $1
			UNION
			SELECT s.id FROM sectors s
			JOIN subtree st ON s.parent_id = st.id
		)
		SELECT id FROM subtree`, root)
	if err != nil {
		return nil, eris.Wrapf(err, "sector: expand CTE for %d", root)
	}
	defer rows.Close()

	set := IDSet{root: {}}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sector: scan subtree id")
		}
		set[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sector: iterate subtree")
	}
	return set, nil
}

// All lists the full taxonomy, used by the offline cache sync and by
// export name resolution.
func (s *Store) All(ctx context.Context) ([]model.Sector, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, parent_id, name FROM sectors ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sector: query all")
	}
	defer rows.Close()

	var sectors []model.Sector
	for rows.Next() {
		var sec model.Sector
		if err := rows.Scan(&sec.ID, &sec.ParentID, &sec.Name); err != nil {
			return nil, eris.Wrap(err, "sector: scan sector")
		}
		sectors = append(sectors, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sector: iterate all")
	}
	return sectors, nil
}

// NamesByID returns display names for the given sector ids.
func (s *Store) NamesByID(ctx context.Context, ids []int64) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name FROM sectors WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "sector: query names")
	}
	defer rows.Close()

	names := make(map[int64]string, len(ids))
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, eris.Wrap(err, "sector: scan name")
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sector: iterate names")
	}
	return names, nil
}
