// Package report builds the analytic reports served to callers: hazard
// impact, most-damaging events, and effect details. Every builder is a
// stateless, read-only function of (filters, tenant) over the store.
package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dris-project/impact-engine/internal/cost"
	"github.com/dris-project/impact-engine/internal/db"
	"github.com/dris-project/impact-engine/internal/filter"
	"github.com/dris-project/impact-engine/internal/model"
)

// topN caps each hazard-impact axis.
const topN = 10

// Options carries the assessment metadata supplied by the caller.
type Options struct {
	AssessmentType  string
	ConfidenceLevel string
	Currency        string
	AssessedBy      string
}

func (o Options) metadata() model.Metadata {
	return cost.NewMetadata(o.AssessmentType, o.ConfidenceLevel, o.Currency, o.AssessedBy)
}

// Builder composes filters and runs report queries.
type Builder struct {
	pool    db.Pool
	filters *filter.Builder
	log     *zap.Logger
}

// NewBuilder creates a report Builder. The logger is injected so the
// builders never reach for a process-wide instance.
func NewBuilder(pool db.Pool, filters *filter.Builder, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{pool: pool, filters: filters, log: log}
}

// HazardImpactRow is one hazard classification group. Ids are pointers
// because records without hazard data still appear (left-joined).
type HazardImpactRow struct {
	HazardTypeID     *int64  `json:"hazardTypeId"`
	HazardClusterID  *int64  `json:"hazardClusterId"`
	SpecificHazardID *int64  `json:"specificHazardId"`
	EventCount       int64   `json:"eventCount"`
	Damages          float64 `json:"damages"`
	Losses           float64 `json:"losses"`
	PercentOfTotal   float64 `json:"percentOfTotal"`
}

// HazardImpactReport ranks hazard classifications three ways, each axis
// independently sorted and truncated to the top 10.
type HazardImpactReport struct {
	ByEventCount []HazardImpactRow `json:"byEventCount"`
	ByDamages    []HazardImpactRow `json:"byDamages"`
	ByLosses     []HazardImpactRow `json:"byLosses"`
	Metadata     model.Metadata    `json:"metadata"`
}

// HazardImpact groups disaster records by hazard classification and
// computes event counts and summed damages/losses. The cost sums use the
// simplified formulas: hazard rollups read the stored totals without
// override branching, unlike the per-event report.
//
// The three sub-queries are independent reads and run concurrently.
func (b *Builder) HazardImpact(ctx context.Context, req filter.Request, opts Options) (*HazardImpactReport, error) {
	preds, err := b.filters.Compose(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "report: hazard impact filters")
	}

	var counts, damages, losses []HazardImpactRow
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = b.hazardEventCounts(gctx, preds)
		return err
	})
	g.Go(func() error {
		var err error
		damages, err = b.hazardCosts(gctx, preds, "damages d", "d.record_id", cost.DamageSimplifiedExpr,
			func(r *HazardImpactRow, v float64) { r.Damages = v })
		return err
	})
	g.Go(func() error {
		var err error
		losses, err = b.hazardCosts(gctx, preds, "losses l", "l.record_id", cost.LossSimplifiedExpr,
			func(r *HazardImpactRow, v float64) { r.Losses = v })
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &HazardImpactReport{
		ByEventCount: rank(counts, func(r HazardImpactRow) float64 { return float64(r.EventCount) }),
		ByDamages:    rank(damages, func(r HazardImpactRow) float64 { return r.Damages }),
		ByLosses:     rank(losses, func(r HazardImpactRow) float64 { return r.Losses }),
		Metadata:     opts.metadata(),
	}
	return rep, nil
}

// hazardEventCounts counts distinct events per hazard classification.
func (b *Builder) hazardEventCounts(ctx context.Context, preds []filter.Predicate) ([]HazardImpactRow, error) {
	where, args := filter.WhereClause(preds, 1)
	query := `
		SELECT he.hazard_type_id, he.hazard_cluster_id, he.specific_hazard_id,
		       COUNT(DISTINCT de.id)
		FROM disaster_records dr
		JOIN disaster_events de ON de.id = dr.disaster_event_id
		LEFT JOIN hazardous_events he ON he.id = de.hazardous_event_id` +
		where + `
		GROUP BY he.hazard_type_id, he.hazard_cluster_id, he.specific_hazard_id`

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "report: hazard event counts")
	}
	defer rows.Close()

	var out []HazardImpactRow
	for rows.Next() {
		var r HazardImpactRow
		if err := rows.Scan(&r.HazardTypeID, &r.HazardClusterID, &r.SpecificHazardID, &r.EventCount); err != nil {
			return nil, eris.Wrap(err, "report: scan hazard counts")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "report: iterate hazard counts")
}

// hazardCosts sums a simplified cost expression per hazard
// classification over one cost table. assign writes the sum into the
// axis field the caller is building.
func (b *Builder) hazardCosts(ctx context.Context, preds []filter.Predicate, costTable, recordRef, costExpr string, assign func(*HazardImpactRow, float64)) ([]HazardImpactRow, error) {
	where, args := filter.WhereClause(preds, 1)
	query := fmt.Sprintf(`
		SELECT he.hazard_type_id, he.hazard_cluster_id, he.specific_hazard_id,
		       COALESCE(SUM(%s), 0)
		FROM disaster_records dr
		JOIN disaster_events de ON de.id = dr.disaster_event_id
		LEFT JOIN hazardous_events he ON he.id = de.hazardous_event_id
		JOIN %s ON %s = dr.id`,
		costExpr, costTable, recordRef) +
		where + `
		GROUP BY he.hazard_type_id, he.hazard_cluster_id, he.specific_hazard_id`

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "report: hazard costs from %s", costTable)
	}
	defer rows.Close()

	var out []HazardImpactRow
	for rows.Next() {
		var r HazardImpactRow
		var sum pgtype.Numeric
		if err := rows.Scan(&r.HazardTypeID, &r.HazardClusterID, &r.SpecificHazardID, &sum); err != nil {
			return nil, eris.Wrapf(err, "report: scan hazard costs from %s", costTable)
		}
		v, err := db.NumericToFloat(sum)
		if err != nil {
			return nil, eris.Wrapf(err, "report: convert hazard cost sum from %s", costTable)
		}
		assign(&r, v)
		out = append(out, r)
	}
	return out, eris.Wrapf(rows.Err(), "report: iterate hazard costs from %s", costTable)
}

// rank computes percent-of-total, sorts descending by the axis value,
// and truncates to the top 10.
func rank(rows []HazardImpactRow, value func(HazardImpactRow) float64) []HazardImpactRow {
	var total float64
	for _, r := range rows {
		total += value(r)
	}
	if total > 0 {
		for i := range rows {
			rows[i].PercentOfTotal = value(rows[i]) / total * 100
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return value(rows[i]) > value(rows[j]) })
	if len(rows) > topN {
		rows = rows[:topN]
	}
	return rows
}
