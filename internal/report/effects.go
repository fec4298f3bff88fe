package report

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/dris-project/impact-engine/internal/cost"
	"github.com/dris-project/impact-engine/internal/filter"
	"github.com/dris-project/impact-engine/internal/model"
)

// DamageDetail is a damage row annotated with its computed totals.
// Attachments and footprints pass through unmodified.
type DamageDetail struct {
	model.Damage
	ComputedRepairReplacement float64 `json:"computedRepairReplacement"`
	ComputedRecovery          float64 `json:"computedRecovery"`
}

// LossDetail is a loss row annotated with its computed totals.
type LossDetail struct {
	model.Loss
	ComputedPublic  float64 `json:"computedPublic"`
	ComputedPrivate float64 `json:"computedPrivate"`
	ComputedTotal   float64 `json:"computedTotal"`
}

// EffectDetailsReport lists the damages, losses, and disruptions
// matching the composed filters.
type EffectDetailsReport struct {
	Damages     []DamageDetail     `json:"damages"`
	Losses      []LossDetail       `json:"losses"`
	Disruptions []model.Disruption `json:"disruptions"`
	Metadata    model.Metadata     `json:"metadata"`
}

// EffectDetails returns the flat effect lists for the filters. Unlike
// the most-damaging path this report propagates failures: a partial
// aggregate would be worse than an error.
func (b *Builder) EffectDetails(ctx context.Context, req filter.Request, opts Options) (*EffectDetailsReport, error) {
	preds, err := b.filters.Compose(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "report: effect details filters")
	}

	damages, err := b.damageDetails(ctx, preds)
	if err != nil {
		return nil, err
	}
	losses, err := b.lossDetails(ctx, preds)
	if err != nil {
		return nil, err
	}
	disruptions, err := b.disruptionDetails(ctx, preds)
	if err != nil {
		return nil, err
	}

	return &EffectDetailsReport{
		Damages:     damages,
		Losses:      losses,
		Disruptions: disruptions,
		Metadata:    opts.metadata(),
	}, nil
}

func (b *Builder) damageDetails(ctx context.Context, preds []filter.Predicate) ([]DamageDetail, error) {
	where, args := filter.WhereClause(preds, 1)
	query := `
		SELECT d.id, d.record_id, d.sector_id, d.asset_id,
		       d.partial_damage_amount, d.partial_repair_cost_unit,
		       d.total_damage_amount, d.total_replacement_cost_unit,
		       d.total_repair_replacement_override, d.total_repair_replacement,
		       d.partial_recovery_cost_unit, d.total_recovery_cost_unit,
		       d.total_recovery_override, d.total_recovery,
		       d.attachments, d.spatial_footprint
		FROM damages d
		JOIN disaster_records dr ON dr.id = d.record_id
		JOIN disaster_events de ON de.id = dr.disaster_event_id
		LEFT JOIN hazardous_events he ON he.id = de.hazardous_event_id` +
		where + `
		ORDER BY d.id`

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "report: query damage details")
	}
	defer rows.Close()

	details := []DamageDetail{}
	for rows.Next() {
		var d model.Damage
		if err := rows.Scan(
			&d.ID, &d.RecordID, &d.SectorID, &d.AssetID,
			&d.PartialDamageAmount, &d.PartialRepairCostUnit,
			&d.TotalDamageAmount, &d.TotalReplacementCostUnit,
			&d.TotalRepairReplacementOverride, &d.TotalRepairReplacement,
			&d.PartialRecoveryCostUnit, &d.TotalRecoveryCostUnit,
			&d.TotalRecoveryOverride, &d.TotalRecovery,
			&d.Attachments, &d.Footprint,
		); err != nil {
			return nil, eris.Wrap(err, "report: scan damage detail")
		}
		details = append(details, DamageDetail{
			Damage:                    d,
			ComputedRepairReplacement: cost.TotalRepairReplacement(&d),
			ComputedRecovery:          cost.TotalRecovery(&d),
		})
	}
	return details, eris.Wrap(rows.Err(), "report: iterate damage details")
}

func (b *Builder) lossDetails(ctx context.Context, preds []filter.Predicate) ([]LossDetail, error) {
	where, args := filter.WhereClause(preds, 1)
	query := `
		SELECT l.id, l.record_id, l.sector_id, l.type,
		       l.public_units, l.public_cost_per_unit,
		       l.public_cost_total_override, l.public_cost_total,
		       l.private_units, l.private_cost_per_unit,
		       l.private_cost_total_override, l.private_cost_total,
		       l.attachments, l.spatial_footprint
		FROM losses l
		JOIN disaster_records dr ON dr.id = l.record_id
		JOIN disaster_events de ON de.id = dr.disaster_event_id
		LEFT JOIN hazardous_events he ON he.id = de.hazardous_event_id` +
		where + `
		ORDER BY l.id`

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "report: query loss details")
	}
	defer rows.Close()

	details := []LossDetail{}
	for rows.Next() {
		var l model.Loss
		if err := rows.Scan(
			&l.ID, &l.RecordID, &l.SectorID, &l.Type,
			&l.PublicUnits, &l.PublicCostPerUnit,
			&l.PublicCostTotalOverride, &l.PublicCostTotal,
			&l.PrivateUnits, &l.PrivateCostPerUnit,
			&l.PrivateCostTotalOverride, &l.PrivateCostTotal,
			&l.Attachments, &l.Footprint,
		); err != nil {
			return nil, eris.Wrap(err, "report: scan loss detail")
		}
		details = append(details, LossDetail{
			Loss:            l,
			ComputedPublic:  cost.LossPublic(&l),
			ComputedPrivate: cost.LossPrivate(&l),
			ComputedTotal:   cost.TotalLoss(&l),
		})
	}
	return details, eris.Wrap(rows.Err(), "report: iterate loss details")
}

func (b *Builder) disruptionDetails(ctx context.Context, preds []filter.Predicate) ([]model.Disruption, error) {
	where, args := filter.WhereClause(preds, 1)
	query := `
		SELECT ds.id, ds.record_id, ds.sector_id, ds.duration_days,
		       ds.people_affected, ds.users_affected, ds.response_cost,
		       ds.attachments, ds.spatial_footprint
		FROM disruptions ds
		JOIN disaster_records dr ON dr.id = ds.record_id
		JOIN disaster_events de ON de.id = dr.disaster_event_id
		LEFT JOIN hazardous_events he ON he.id = de.hazardous_event_id` +
		where + `
		ORDER BY ds.id`

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "report: query disruption details")
	}
	defer rows.Close()

	disruptions := []model.Disruption{}
	for rows.Next() {
		var ds model.Disruption
		if err := rows.Scan(
			&ds.ID, &ds.RecordID, &ds.SectorID, &ds.DurationDays,
			&ds.PeopleAffected, &ds.UsersAffected, &ds.ResponseCost,
			&ds.Attachments, &ds.Footprint,
		); err != nil {
			return nil, eris.Wrap(err, "report: scan disruption detail")
		}
		disruptions = append(disruptions, ds)
	}
	return disruptions, eris.Wrap(rows.Err(), "report: iterate disruption details")
}
