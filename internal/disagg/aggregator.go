package disagg

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dris-project/impact-engine/internal/db"
	"github.com/dris-project/impact-engine/internal/model"
)

// Totals holds the no-disaggregation human-effect sums for one event.
type Totals struct {
	Total  int64        `json:"total"`
	Tables EffectTotals `json:"tables"`
}

// EffectTotals breaks the grand total down by effect kind.
type EffectTotals struct {
	Deaths           int64 `json:"deaths"`
	Injured          int64 `json:"injured"`
	Missing          int64 `json:"missing"`
	DirectlyAffected int64 `json:"directlyAffected"`
	Displaced        int64 `json:"displaced"`
}

func (t *EffectTotals) set(k EffectKind, v int64) {
	switch k {
	case Deaths:
		t.Deaths = v
	case Injured:
		t.Injured = v
	case Missing:
		t.Missing = v
	case DirectlyAffected:
		t.DirectlyAffected = v
	case Displaced:
		t.Displaced = v
	}
}

// Breakdown holds the per-dimension totals, each flattened to {k, v}
// pairs for the frontend.
type Breakdown struct {
	Sex                 []model.KV `json:"sex"`
	Age                 []model.KV `json:"age"`
	Disability          []model.KV `json:"disability"`
	GlobalPovertyLine   []model.KV `json:"globalPovertyLine"`
	NationalPovertyLine []model.KV `json:"nationalPovertyLine"`
}

func (b *Breakdown) set(d Dimension, kvs []model.KV) {
	switch d {
	case Sex:
		b.Sex = kvs
	case Age:
		b.Age = kvs
	case Disability:
		b.Disability = kvs
	case GlobalPovertyLine:
		b.GlobalPovertyLine = kvs
	case NationalPovertyLine:
		b.NationalPovertyLine = kvs
	}
}

// Summary is the full disaggregation result for one disaster event.
type Summary struct {
	NoDisaggregation Totals    `json:"noDisaggregation"`
	Disaggregations  Breakdown `json:"disaggregations"`
}

// Aggregator computes Summary values from the relational store.
type Aggregator struct {
	pool   db.Pool
	status string
	log    *zap.Logger
}

// NewAggregator creates an Aggregator scoped to published records.
func NewAggregator(pool db.Pool, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{pool: pool, status: string(model.StatusPublished), log: log}
}

// WithApprovalStatus changes the visibility scope (e.g. "approved" for
// internal callers).
func (a *Aggregator) WithApprovalStatus(status string) *Aggregator {
	if status != "" {
		a.status = status
	}
	return a
}

// dimensionColumns is every dimension column, used when asserting the
// "all other dimensions null" half of both invariants.
func dimensionColumns() []string {
	cols := make([]string, len(Dimensions))
	for i, d := range Dimensions {
		cols[i] = d.Column()
	}
	return cols
}

// customEmpty matches a custom JSON map that is null, empty, or carries
// only null values.
const customEmpty = `(hd.custom IS NULL OR hd.custom = '{}'::jsonb OR NOT EXISTS (
	SELECT 1 FROM jsonb_each(hd.custom) kv WHERE kv.value <> 'null'::jsonb))`

// invariantA matches rows in the no-disaggregation bucket: every
// dimension null and custom empty.
func invariantA() string {
	conds := make([]string, 0, len(Dimensions)+1)
	for _, col := range dimensionColumns() {
		conds = append(conds, fmt.Sprintf("hd.%s IS NULL", col))
	}
	conds = append(conds, "(hd.custom IS NULL OR hd.custom = '{}'::jsonb)")
	return strings.Join(conds, " AND ")
}

// invariantB matches rows in dimension dim's single-dimension bucket:
// dim populated, every other dimension null, custom carrying nothing.
func invariantB(dim Dimension) string {
	target := dim.Column()
	conds := []string{fmt.Sprintf("hd.%s IS NOT NULL", target)}
	for _, col := range dimensionColumns() {
		if col != target {
			conds = append(conds, fmt.Sprintf("hd.%s IS NULL", col))
		}
	}
	conds = append(conds, customEmpty)
	return strings.Join(conds, " AND ")
}

// Aggregate computes the full summary for one disaster event: the
// no-disaggregation totals and the five per-dimension breakdowns.
//
// Every query is scoped by the event id and approval status. A disaster
// event belongs to exactly one country account, so the event id carries
// the tenant scope; callers resolve the id through tenant-filtered
// paths before aggregating.
func (a *Aggregator) Aggregate(ctx context.Context, disasterEventID int64) (*Summary, error) {
	var s Summary

	for _, kind := range EffectKinds {
		total, err := a.sumNoDisaggregation(ctx, disasterEventID, kind)
		if err != nil {
			return nil, err
		}
		s.NoDisaggregation.Tables.set(kind, total)
		s.NoDisaggregation.Total += total
	}

	for _, dim := range Dimensions {
		merged := map[string]int64{}
		for _, kind := range EffectKinds {
			byValue, err := a.sumByDimension(ctx, disasterEventID, kind, dim)
			if err != nil {
				return nil, err
			}
			for k, v := range byValue {
				merged[k] += v
			}
		}
		if dim == Disability {
			merged = collapseDisability(merged)
		}
		s.Disaggregations.set(dim, flatten(merged))
	}

	return &s, nil
}

// sumNoDisaggregation sums one effect table under Invariant A.
func (a *Aggregator) sumNoDisaggregation(ctx context.Context, eventID int64, kind EffectKind) (int64, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(t.%s), 0)
		FROM %s t
		JOIN human_effect_disaggregations hd ON hd.id = t.disaggregation_id
		JOIN disaster_records dr ON dr.id = hd.record_id
		WHERE dr.disaster_event_id = $1
		  AND dr.approval_status ILIKE $2
		  AND %s`,
		kind.ValueColumn(), kind.Table(), invariantA())

	var sum pgtype.Numeric
	if err := a.pool.QueryRow(ctx, query, eventID, a.status).Scan(&sum); err != nil {
		return 0, eris.Wrapf(err, "disagg: sum %s for event %d", kind, eventID)
	}
	total, err := db.NumericToInt(sum)
	if err != nil {
		return 0, eris.Wrapf(err, "disagg: convert %s sum", kind)
	}
	return total, nil
}

// sumByDimension groups one effect table by one dimension column under
// Invariant B.
func (a *Aggregator) sumByDimension(ctx context.Context, eventID int64, kind EffectKind, dim Dimension) (map[string]int64, error) {
	col := dim.Column()
	query := fmt.Sprintf(`
		SELECT hd.%s, COALESCE(SUM(t.%s), 0)
		FROM %s t
		JOIN human_effect_disaggregations hd ON hd.id = t.disaggregation_id
		JOIN disaster_records dr ON dr.id = hd.record_id
		WHERE dr.disaster_event_id = $1
		  AND dr.approval_status ILIKE $2
		  AND %s
		GROUP BY hd.%s`,
		col, kind.ValueColumn(), kind.Table(), invariantB(dim), col)

	rows, err := a.pool.Query(ctx, query, eventID, a.status)
	if err != nil {
		return nil, eris.Wrapf(err, "disagg: group %s by %s for event %d", kind, dim, eventID)
	}
	defer rows.Close()

	byValue := map[string]int64{}
	for rows.Next() {
		var key string
		var sum pgtype.Numeric
		if err := rows.Scan(&key, &sum); err != nil {
			return nil, eris.Wrapf(err, "disagg: scan %s by %s", kind, dim)
		}
		v, err := db.NumericToInt(sum)
		if err != nil {
			return nil, eris.Wrapf(err, "disagg: convert %s group sum", kind)
		}
		byValue[key] += v
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "disagg: iterate %s by %s", kind, dim)
	}
	return byValue, nil
}

// collapseDisability folds every non-"none" disability value into one
// "disability" bucket while keeping "none" distinct. Runs only for the
// disability dimension, after the raw group-by.
func collapseDisability(byValue map[string]int64) map[string]int64 {
	out := map[string]int64{}
	for k, v := range byValue {
		if k == "none" {
			out["none"] += v
		} else {
			out["disability"] += v
		}
	}
	return out
}

// flatten renders a breakdown map as {k, v} pairs, sorted by key for
// stable output.
func flatten(byValue map[string]int64) []model.KV {
	kvs := make([]model.KV, 0, len(byValue))
	for k, v := range byValue {
		kvs = append(kvs, model.KV{K: k, V: v})
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].K < kvs[j].K })
	return kvs
}
