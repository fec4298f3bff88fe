// Package export renders report results as xlsx workbooks or CSV files,
// resolving hazard and sector display names for the id columns.
package export

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/dris-project/impact-engine/internal/db"
)

// Names maps classification ids to display names.
type Names struct {
	HazardTypes     map[int64]string
	HazardClusters  map[int64]string
	SpecificHazards map[int64]string
	Sectors         map[int64]string
}

// Label returns the display name for an id, or the bare id when the
// lookup table has no entry. A nil id renders as "unclassified".
func label(names map[int64]string, id *int64) string {
	if id == nil {
		return "unclassified"
	}
	if n, ok := names[*id]; ok {
		return n
	}
	return fmt.Sprintf("#%d", *id)
}

// HazardType resolves a hazard type id for display.
func (n *Names) HazardType(id *int64) string { return label(n.HazardTypes, id) }

// HazardCluster resolves a hazard cluster id for display.
func (n *Names) HazardCluster(id *int64) string { return label(n.HazardClusters, id) }

// SpecificHazard resolves a specific hazard id for display.
func (n *Names) SpecificHazard(id *int64) string { return label(n.SpecificHazards, id) }

// Sector resolves a sector id for display.
func (n *Names) Sector(id int64) string { return label(n.Sectors, &id) }

// NameStore loads the display-name lookup tables.
type NameStore struct {
	pool db.Pool
}

// NewNameStore creates a NameStore over the pool.
func NewNameStore(pool db.Pool) *NameStore {
	return &NameStore{pool: pool}
}

// Resolve loads all four lookup tables. The queries are independent
// reads and run concurrently.
func (s *NameStore) Resolve(ctx context.Context) (*Names, error) {
	names := &Names{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		names.HazardTypes, err = s.lookup(gctx, "hazard_types")
		return err
	})
	g.Go(func() (err error) {
		names.HazardClusters, err = s.lookup(gctx, "hazard_clusters")
		return err
	})
	g.Go(func() (err error) {
		names.SpecificHazards, err = s.lookup(gctx, "specific_hazards")
		return err
	})
	g.Go(func() (err error) {
		names.Sectors, err = s.lookup(gctx, "sectors")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return names, nil
}

func (s *NameStore) lookup(ctx context.Context, table string) (map[int64]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name FROM "+table)
	if err != nil {
		return nil, eris.Wrapf(err, "export: query %s names", table)
	}
	defer rows.Close()

	names := map[int64]string{}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, eris.Wrapf(err, "export: scan %s name", table)
		}
		names[id] = name
	}
	return names, eris.Wrapf(rows.Err(), "export: iterate %s names", table)
}
