package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dris-project/impact-engine/internal/model"
)

func f(v float64) *float64 { return &v }

func TestTotalRepairReplacementOverride(t *testing.T) {
	d := &model.Damage{
		TotalRepairReplacementOverride: true,
		TotalRepairReplacement:         f(5000),
		// Arbitrary unit/quantity fields must be ignored.
		PartialDamageAmount:      f(99),
		PartialRepairCostUnit:    f(17),
		TotalDamageAmount:        f(4),
		TotalReplacementCostUnit: f(1234),
	}
	assert.Equal(t, 5000.0, TotalRepairReplacement(d))
}

func TestTotalRepairReplacementOverrideNilValue(t *testing.T) {
	d := &model.Damage{TotalRepairReplacementOverride: true}
	assert.Zero(t, TotalRepairReplacement(d))
}

func TestTotalRepairReplacementFormula(t *testing.T) {
	d := &model.Damage{
		PartialDamageAmount:      f(10),
		PartialRepairCostUnit:    f(150),
		TotalDamageAmount:        f(2),
		TotalReplacementCostUnit: f(40000),
	}
	assert.Equal(t, 10*150+2*40000.0, TotalRepairReplacement(d))
}

func TestTotalRepairReplacementNullsAsZero(t *testing.T) {
	d := &model.Damage{
		PartialDamageAmount:   f(10),
		PartialRepairCostUnit: nil, // half-entered row
	}
	assert.Zero(t, TotalRepairReplacement(d))
}

func TestTotalRecovery(t *testing.T) {
	d := &model.Damage{
		PartialDamageAmount:     f(5),
		PartialRecoveryCostUnit: f(100),
		TotalDamageAmount:       f(1),
		TotalRecoveryCostUnit:   f(2000),
	}
	assert.Equal(t, 5*100+1*2000.0, TotalRecovery(d))

	d.TotalRecoveryOverride = true
	d.TotalRecovery = f(777)
	assert.Equal(t, 777.0, TotalRecovery(d))
}

func TestTotalLossFormula(t *testing.T) {
	l := &model.Loss{
		PublicUnits:        f(10),
		PublicCostPerUnit:  f(250),
		PrivateUnits:       f(0),
		PrivateCostPerUnit: f(999),
	}
	assert.Equal(t, 2500.0, TotalLoss(l))
}

func TestTotalLossOverrides(t *testing.T) {
	l := &model.Loss{
		PublicCostTotalOverride:  true,
		PublicCostTotal:          f(1000),
		PublicUnits:              f(10),
		PublicCostPerUnit:        f(250),
		PrivateCostTotalOverride: true,
		PrivateCostTotal:         nil,
	}
	assert.Equal(t, 1000.0, TotalLoss(l), "override beats formula; nil override is 0")
}

func TestCalculationsAreIdempotent(t *testing.T) {
	d := &model.Damage{
		PartialDamageAmount:      f(3),
		PartialRepairCostUnit:    f(7),
		TotalDamageAmount:        f(11),
		TotalReplacementCostUnit: f(13),
	}
	first := TotalRepairReplacement(d)
	assert.Equal(t, first, TotalRepairReplacement(d))

	l := &model.Loss{PublicUnits: f(4), PublicCostPerUnit: f(9)}
	assert.Equal(t, TotalLoss(l), TotalLoss(l))
}

func TestNewMetadataDefaults(t *testing.T) {
	md := NewMetadata("", "", "", "")
	assert.Equal(t, "rapid", md.AssessmentType)
	assert.Equal(t, "medium", md.ConfidenceLevel)
	assert.Equal(t, "USD", md.Currency)
	assert.False(t, md.AssessmentDate.IsZero())
}

func TestNewMetadataCallerValues(t *testing.T) {
	md := NewMetadata("detailed", "high", "PHP", "NDRRMC")
	assert.Equal(t, "detailed", md.AssessmentType)
	assert.Equal(t, "high", md.ConfidenceLevel)
	assert.Equal(t, "PHP", md.Currency)
	assert.Equal(t, "NDRRMC", md.AssessedBy)
}
