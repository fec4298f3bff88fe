// Package disagg aggregates human-effect counts for a disaster event,
// with and without demographic breakdowns, under the rule that a
// disaggregation row feeds a breakdown only when exactly one dimension
// is populated.
package disagg

import "fmt"

// EffectKind identifies one of the five human-effect value tables. Each
// kind carries its own table and value column so the same aggregation
// logic runs uniformly across all five without runtime column lookups.
type EffectKind int

const (
	Deaths EffectKind = iota
	Injured
	Missing
	DirectlyAffected
	Displaced
)

// EffectKinds lists every kind in aggregation order.
var EffectKinds = [...]EffectKind{Deaths, Injured, Missing, DirectlyAffected, Displaced}

// String returns the JSON key for the kind.
func (k EffectKind) String() string {
	switch k {
	case Deaths:
		return "deaths"
	case Injured:
		return "injured"
	case Missing:
		return "missing"
	case DirectlyAffected:
		return "directlyAffected"
	case Displaced:
		return "displaced"
	default:
		panic(fmt.Sprintf("disagg: unknown effect kind %d", int(k)))
	}
}

// Table returns the value table for the kind.
func (k EffectKind) Table() string {
	switch k {
	case Deaths:
		return "deaths"
	case Injured:
		return "injured"
	case Missing:
		return "missing"
	case DirectlyAffected:
		return "affected"
	case Displaced:
		return "displaced"
	default:
		panic(fmt.Sprintf("disagg: unknown effect kind %d", int(k)))
	}
}

// ValueColumn returns the summed column. The affected table carries
// direct and indirect counts; only direct feeds these totals.
func (k EffectKind) ValueColumn() string {
	if k == DirectlyAffected {
		return "direct"
	}
	return "value"
}

// Dimension is one of the five demographic axes a human-effect count may
// be broken down along.
type Dimension int

const (
	Sex Dimension = iota
	Age
	Disability
	GlobalPovertyLine
	NationalPovertyLine
)

// Dimensions lists every dimension in output order.
var Dimensions = [...]Dimension{Sex, Age, Disability, GlobalPovertyLine, NationalPovertyLine}

// String returns the JSON key for the dimension.
func (d Dimension) String() string {
	switch d {
	case Sex:
		return "sex"
	case Age:
		return "age"
	case Disability:
		return "disability"
	case GlobalPovertyLine:
		return "globalPovertyLine"
	case NationalPovertyLine:
		return "nationalPovertyLine"
	default:
		panic(fmt.Sprintf("disagg: unknown dimension %d", int(d)))
	}
}

// Column returns the disaggregation column for the dimension. Passing
// anything outside the five recognized dimensions is a programmer error
// and panics rather than silently grouping by nothing.
func (d Dimension) Column() string {
	switch d {
	case Sex:
		return "sex"
	case Age:
		return "age"
	case Disability:
		return "disability"
	case GlobalPovertyLine:
		return "global_poverty_line"
	case NationalPovertyLine:
		return "national_poverty_line"
	default:
		panic(fmt.Sprintf("disagg: group-by on unrecognized dimension %d", int(d)))
	}
}
