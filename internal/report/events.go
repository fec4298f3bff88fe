package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dris-project/impact-engine/internal/cost"
	"github.com/dris-project/impact-engine/internal/db"
	"github.com/dris-project/impact-engine/internal/filter"
	"github.com/dris-project/impact-engine/internal/model"
	"github.com/dris-project/impact-engine/internal/resilience"
)

// SortBy names a most-damaging-events sort column.
type SortBy string

const (
	SortByDamages   SortBy = "damages"
	SortByLosses    SortBy = "losses"
	SortByEventName SortBy = "eventName"
	SortByCreatedAt SortBy = "createdAt"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// PageRequest carries pagination and sorting for the most-damaging
// report. Out-of-range values are clamped, unknown sorts fall back to
// damages descending.
type PageRequest struct {
	Page          int
	PageSize      int
	SortBy        SortBy
	SortDirection SortDirection
}

func (p PageRequest) normalized() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	switch p.SortBy {
	case SortByDamages, SortByLosses, SortByEventName, SortByCreatedAt:
	default:
		p.SortBy = SortByDamages
	}
	switch p.SortDirection {
	case Asc, Desc:
	default:
		p.SortDirection = Desc
	}
	return p
}

// orderClause maps the sort request onto query columns. Values are drawn
// from the fixed vocabulary above, never from raw caller input.
func (p PageRequest) orderClause() string {
	col := map[SortBy]string{
		SortByDamages:   "total_damages",
		SortByLosses:    "total_losses",
		SortByEventName: "LOWER(de.name_national)",
		SortByCreatedAt: "de.created_at",
	}[p.SortBy]
	dir := "DESC"
	if p.SortDirection == Asc {
		dir = "ASC"
	}
	return col + " " + dir
}

// EventImpact is one ranked disaster event.
type EventImpact struct {
	EventID      int64     `json:"eventId"`
	EventName    string    `json:"eventName"`
	CreatedAt    time.Time `json:"createdAt"`
	TotalDamages float64   `json:"totalDamages"`
	TotalLosses  float64   `json:"totalLosses"`
}

// MostDamagingReport is the paginated ranking envelope. Notes flags
// degraded or empty results; it is the only channel failures surface
// through on this path.
type MostDamagingReport struct {
	Events     []EventImpact    `json:"events"`
	Pagination model.Pagination `json:"pagination"`
	Metadata   model.Metadata   `json:"metadata"`
}

// enriched query: per event, prefer the sector-relation precomputed cost
// (with_damage/damage_cost, with_losses/losses_cost) and fall back to a
// correlated override-aware lookup per record sector.
const mostDamagingQuery = `
	SELECT de.id, de.name_national, de.created_at,
	       COALESCE(SUM(
	           CASE WHEN rs.with_damage AND rs.damage_cost IS NOT NULL THEN rs.damage_cost
	           ELSE (SELECT COALESCE(SUM(` + cost.DamageOverrideAwareExpr + ` + ` + cost.RecoveryOverrideAwareExpr + `), 0)
	                 FROM damages d WHERE d.record_id = dr.id AND d.sector_id = rs.sector_id)
	           END), 0) AS total_damages,
	       COALESCE(SUM(
	           CASE WHEN rs.with_losses AND rs.losses_cost IS NOT NULL THEN rs.losses_cost
	           ELSE (SELECT COALESCE(SUM(` + cost.LossOverrideAwareExpr + `), 0)
	                 FROM losses l WHERE l.record_id = dr.id AND l.sector_id = rs.sector_id)
	           END), 0) AS total_losses
	FROM disaster_events de
	JOIN disaster_records dr ON dr.disaster_event_id = de.id
	LEFT JOIN hazardous_events he ON he.id = de.hazardous_event_id
	LEFT JOIN record_sectors rs ON rs.record_id = dr.id`

const mostDamagingCountQuery = `
	SELECT COUNT(DISTINCT de.id)
	FROM disaster_events de
	JOIN disaster_records dr ON dr.disaster_event_id = de.id
	LEFT JOIN hazardous_events he ON he.id = de.hazardous_event_id`

// simplified fallback: names and timestamps only, costs zero-filled.
const mostDamagingFallbackQuery = `
	SELECT de.id, de.name_national, de.created_at
	FROM disaster_events de
	JOIN disaster_records dr ON dr.disaster_event_id = de.id
	LEFT JOIN hazardous_events he ON he.id = de.hazardous_event_id`

// MostDamagingEvents ranks disaster events by summed damages or losses.
// It never returns an error: any failure along the way degrades to a
// well-formed envelope — first by retrying transient store errors, then
// by falling back to the simplified query with zero-filled costs, and
// finally by returning an empty zero-total result with an explanatory
// note. The underlying errors are logged, not surfaced.
func (b *Builder) MostDamagingEvents(ctx context.Context, req filter.Request, page PageRequest, opts Options) *MostDamagingReport {
	page = page.normalized()
	md := opts.metadata()

	preds, err := b.filters.Compose(ctx, req)
	if err != nil {
		b.log.Error("report: most-damaging filter composition failed", zap.Error(err))
		return emptyMostDamaging(page, md, "report unavailable: could not resolve filters")
	}

	total, err := b.countEvents(ctx, preds)
	if err != nil {
		b.log.Error("report: most-damaging count failed", zap.Error(err))
		return emptyMostDamaging(page, md, "report unavailable: event count failed")
	}

	events, err := b.queryEnriched(ctx, preds, page)
	if err == nil {
		return &MostDamagingReport{
			Events:     events,
			Pagination: model.NewPagination(total, page.Page, page.PageSize),
			Metadata:   md,
		}
	}
	b.log.Warn("report: most-damaging enriched query failed, degrading", zap.Error(err))

	events, err = b.queryFallback(ctx, preds, page)
	if err != nil {
		b.log.Error("report: most-damaging fallback query failed", zap.Error(err))
		return emptyMostDamaging(page, md, "report unavailable: store query failed")
	}

	md.Notes = "degraded result: damage and loss totals unavailable"
	return &MostDamagingReport{
		Events:     events,
		Pagination: model.NewPagination(total, page.Page, page.PageSize),
		Metadata:   md,
	}
}

func emptyMostDamaging(page PageRequest, md model.Metadata, note string) *MostDamagingReport {
	md.Notes = note
	return &MostDamagingReport{
		Events:     []EventImpact{},
		Pagination: model.NewPagination(0, page.Page, page.PageSize),
		Metadata:   md,
	}
}

func (b *Builder) countEvents(ctx context.Context, preds []filter.Predicate) (int, error) {
	where, args := filter.WhereClause(preds, 1)

	var total int
	err := b.pool.QueryRow(ctx, mostDamagingCountQuery+where, args...).Scan(&total)
	if err != nil {
		return 0, eris.Wrap(err, "report: count most-damaging events")
	}
	return total, nil
}

func (b *Builder) queryEnriched(ctx context.Context, preds []filter.Predicate, page PageRequest) ([]EventImpact, error) {
	where, args := filter.WhereClause(preds, 1)
	query := mostDamagingQuery + where +
		" GROUP BY de.id, de.name_national, de.created_at ORDER BY " + page.orderClause() +
		limitOffset(len(args)+1)
	args = append(args, page.PageSize, (page.Page-1)*page.PageSize)

	events := []EventImpact{}
	err := resilience.Do(ctx, resilience.RetryConfig{Log: b.log}, func(ctx context.Context) error {
		rows, err := b.pool.Query(ctx, query, args...)
		if err != nil {
			return eris.Wrap(err, "report: query most-damaging events")
		}
		defer rows.Close()

		events = events[:0]
		for rows.Next() {
			var ev EventImpact
			var damages, losses pgtype.Numeric
			if err := rows.Scan(&ev.EventID, &ev.EventName, &ev.CreatedAt, &damages, &losses); err != nil {
				return eris.Wrap(err, "report: scan most-damaging event")
			}
			if ev.TotalDamages, err = db.NumericToFloat(damages); err != nil {
				return eris.Wrap(err, "report: convert damages")
			}
			if ev.TotalLosses, err = db.NumericToFloat(losses); err != nil {
				return eris.Wrap(err, "report: convert losses")
			}
			events = append(events, ev)
		}
		return eris.Wrap(rows.Err(), "report: iterate most-damaging events")
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// queryFallback runs the simplified query. Cost-based sorts cannot be
// honored without cost columns; those fall back to creation time in the
// query, and name sorts are applied in memory with a case-insensitive
// collator.
func (b *Builder) queryFallback(ctx context.Context, preds []filter.Predicate, page PageRequest) ([]EventImpact, error) {
	order := "de.created_at DESC"
	if page.SortBy == SortByCreatedAt && page.SortDirection == Asc {
		order = "de.created_at ASC"
	}

	where, args := filter.WhereClause(preds, 1)
	query := mostDamagingFallbackQuery + where +
		" GROUP BY de.id, de.name_national, de.created_at ORDER BY " + order +
		limitOffset(len(args)+1)
	args = append(args, page.PageSize, (page.Page-1)*page.PageSize)

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "report: fallback most-damaging query")
	}
	defer rows.Close()

	events := []EventImpact{}
	for rows.Next() {
		var ev EventImpact
		if err := rows.Scan(&ev.EventID, &ev.EventName, &ev.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "report: scan fallback event")
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "report: iterate fallback events")
	}

	if page.SortBy == SortByEventName {
		sortByName(events, page.SortDirection)
	}
	return events, nil
}

// sortByName orders events case-insensitively by name.
func sortByName(events []EventImpact, dir SortDirection) {
	c := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(events, func(i, j int) bool {
		cmp := c.CompareString(events[i].EventName, events[j].EventName)
		if dir == Desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// limitOffset renders the pagination tail with placeholders starting at
// startIdx, after the filter arguments.
func limitOffset(startIdx int) string {
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", startIdx, startIdx+1)
}
