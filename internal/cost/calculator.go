// Package cost computes monetary damage, loss, and recovery totals under
// the override-or-formula rule: a manually entered total replaces the
// unit-price × quantity formula whenever its override flag is set.
package cost

import (
	"time"

	"github.com/dris-project/impact-engine/internal/model"
)

// TotalRepairReplacement returns the repair/replacement total for one
// damage row. With the override flag set, the entered total wins (nil
// counts as 0) regardless of the unit/quantity fields.
func TotalRepairReplacement(d *model.Damage) float64 {
	if d.TotalRepairReplacementOverride {
		return nz(d.TotalRepairReplacement)
	}
	return nz(d.PartialDamageAmount)*nz(d.PartialRepairCostUnit) +
		nz(d.TotalDamageAmount)*nz(d.TotalReplacementCostUnit)
}

// TotalRecovery returns the recovery total for one damage row, following
// the same override-or-formula pattern over the recovery unit costs.
func TotalRecovery(d *model.Damage) float64 {
	if d.TotalRecoveryOverride {
		return nz(d.TotalRecovery)
	}
	return nz(d.PartialDamageAmount)*nz(d.PartialRecoveryCostUnit) +
		nz(d.TotalDamageAmount)*nz(d.TotalRecoveryCostUnit)
}

// LossPublic returns the public-category total for one loss row.
func LossPublic(l *model.Loss) float64 {
	if l.PublicCostTotalOverride {
		return nz(l.PublicCostTotal)
	}
	return nz(l.PublicUnits) * nz(l.PublicCostPerUnit)
}

// LossPrivate returns the private-category total for one loss row.
func LossPrivate(l *model.Loss) float64 {
	if l.PrivateCostTotalOverride {
		return nz(l.PrivateCostTotal)
	}
	return nz(l.PrivateUnits) * nz(l.PrivateCostPerUnit)
}

// TotalLoss is the row's full loss: public plus private.
func TotalLoss(l *model.Loss) float64 {
	return LossPublic(l) + LossPrivate(l)
}

func nz(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// The SQL expressions below mirror the Go functions for aggregate
// queries. The simplified pair sums stored totals without override
// branching and is used only for hazard-level rollups; the
// override-aware pair is used for per-event rollups. The two
// deliberately disagree in precision and must not be unified.
const (
	// DamageSimplifiedExpr sums stored repair/replacement and recovery
	// totals per damage row (alias d).
	DamageSimplifiedExpr = `(COALESCE(d.total_repair_replacement, 0) + COALESCE(d.total_recovery, 0))`

	// LossSimplifiedExpr sums stored public and private totals per loss
	// row (alias l).
	LossSimplifiedExpr = `(COALESCE(l.public_cost_total, 0) + COALESCE(l.private_cost_total, 0))`

	// DamageOverrideAwareExpr is TotalRepairReplacement as SQL.
	DamageOverrideAwareExpr = `(CASE WHEN d.total_repair_replacement_override
		THEN COALESCE(d.total_repair_replacement, 0)
		ELSE COALESCE(d.partial_damage_amount, 0) * COALESCE(d.partial_repair_cost_unit, 0)
		   + COALESCE(d.total_damage_amount, 0) * COALESCE(d.total_replacement_cost_unit, 0)
		END)`

	// RecoveryOverrideAwareExpr is TotalRecovery as SQL.
	RecoveryOverrideAwareExpr = `(CASE WHEN d.total_recovery_override
		THEN COALESCE(d.total_recovery, 0)
		ELSE COALESCE(d.partial_damage_amount, 0) * COALESCE(d.partial_recovery_cost_unit, 0)
		   + COALESCE(d.total_damage_amount, 0) * COALESCE(d.total_recovery_cost_unit, 0)
		END)`

	// LossOverrideAwareExpr is TotalLoss as SQL.
	LossOverrideAwareExpr = `((CASE WHEN l.public_cost_total_override
		THEN COALESCE(l.public_cost_total, 0)
		ELSE COALESCE(l.public_units, 0) * COALESCE(l.public_cost_per_unit, 0)
		END) + (CASE WHEN l.private_cost_total_override
		THEN COALESCE(l.private_cost_total, 0)
		ELSE COALESCE(l.private_units, 0) * COALESCE(l.private_cost_per_unit, 0)
		END))`
)

// Defaults for the assessment envelope when the caller supplies nothing.
const (
	DefaultAssessmentType  = "rapid"
	DefaultConfidenceLevel = "medium"
	DefaultCurrency        = "USD"
)

// NewMetadata stamps the assessment envelope attached to every report.
// Empty inputs fall back to the platform defaults; currency comes from
// tenant configuration when the caller has one.
func NewMetadata(assessmentType, confidenceLevel, currency, assessedBy string) model.Metadata {
	if assessmentType == "" {
		assessmentType = DefaultAssessmentType
	}
	if confidenceLevel == "" {
		confidenceLevel = DefaultConfidenceLevel
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return model.Metadata{
		AssessmentType:  assessmentType,
		ConfidenceLevel: confidenceLevel,
		Currency:        currency,
		AssessmentDate:  time.Now().UTC(),
		AssessedBy:      assessedBy,
	}
}
