// Package geo is the geography collaborator: it resolves administrative
// division ids into filter predicates and loads division boundaries from
// shapefiles.
package geo

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dris-project/impact-engine/internal/db"
	"github.com/dris-project/impact-engine/internal/filter"
)

// Division is one administrative area (country, province, municipality).
type Division struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Level    int    `json:"level"`
	ParentID *int64 `json:"parentId,omitempty"`
	Boundary []byte `json:"-"` // EWKB, SRID 4326
}

// Store reads geographic divisions from Postgres and implements
// filter.GeoApplier.
type Store struct {
	pool db.Pool
	log  *zap.Logger
}

// NewStore creates a geo Store.
func NewStore(pool db.Pool, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{pool: pool, log: log}
}

// DivisionInfo fetches one division by id.
func (s *Store) DivisionInfo(ctx context.Context, id int64) (*Division, error) {
	var d Division
	err := s.pool.QueryRow(ctx, `
		SELECT id, code, name, level, parent_id, boundary
		FROM geographic_divisions WHERE id = $1`, id).
		Scan(&d.ID, &d.Code, &d.Name, &d.Level, &d.ParentID, &d.Boundary)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: division %d", id)
	}
	return &d, nil
}

// descendantIDs collects the division plus all transitive child
// divisions in one recursive CTE.
func (s *Store) descendantIDs(ctx context.Context, id int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		WITH RECURSIVE subtree AS (
			SELECT id FROM geographic_divisions WHERE id = $1
			UNION
			SELECT g.id FROM geographic_divisions g
			JOIN subtree st ON g.parent_id = st.id
		)
		SELECT id FROM subtree ORDER BY id`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: descendants of %d", id)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var divID int64
		if err := rows.Scan(&divID); err != nil {
			return nil, eris.Wrap(err, "geo: scan descendant id")
		}
		ids = append(ids, divID)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "geo: iterate descendants")
	}
	return ids, nil
}

// Predicates translates a division id into row-level predicates: an
// ancestry predicate over the record's division id, plus a geometry
// predicate when the division carries a boundary. Implements
// filter.GeoApplier; the filter composer folds in whatever comes back.
func (s *Store) Predicates(ctx context.Context, divisionID int64) ([]filter.Predicate, error) {
	div, err := s.DivisionInfo(ctx, divisionID)
	if err != nil {
		return nil, err
	}

	ids, err := s.descendantIDs(ctx, divisionID)
	if err != nil {
		return nil, err
	}

	preds := []filter.Predicate{{
		Expr: "dr.geographic_division_id = ANY(?)",
		Args: []any{ids},
	}}

	if len(div.Boundary) > 0 {
		preds = append(preds, filter.Predicate{
			Expr: "(dr.location_geom IS NULL OR ST_Intersects(dr.location_geom, ST_GeomFromEWKB(?)))",
			Args: []any{div.Boundary},
		})
	}

	s.log.Debug("geo: composed division predicates",
		zap.Int64("divisionId", divisionID),
		zap.Int("descendants", len(ids)),
		zap.Bool("geometry", len(div.Boundary) > 0))

	return preds, nil
}
