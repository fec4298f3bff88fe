// Package filter composes the row-level predicates shared by every
// analytic query: tenant scope, approval status, sector subtree
// membership, hazard taxonomy, geography, date range, and event id.
package filter

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dris-project/impact-engine/internal/flexdate"
	"github.com/dris-project/impact-engine/internal/sector"
)

// Predicate is one composable boolean condition. Expr uses `?` markers
// for its arguments; Combine rewrites them to positional placeholders
// when a store assembles the final query.
type Predicate struct {
	Expr string
	Args []any
}

// Request carries the optional filter inputs a caller supplies. Zero
// values mean "absent" and never produce a predicate; TenantID is the
// one exception and is always required.
type Request struct {
	TenantID          int64  `json:"countryAccountsId"`
	ApprovalStatus    string `json:"approvalStatus,omitempty"`
	SectorID          string `json:"sectorId,omitempty"`
	SubSectorID       string `json:"subSectorId,omitempty"`
	HazardTypeID      int64  `json:"hazardTypeId,omitempty"`
	HazardClusterID   int64  `json:"hazardClusterId,omitempty"`
	SpecificHazardID  int64  `json:"specificHazardId,omitempty"`
	GeographicLevelID int64  `json:"geographicLevelId,omitempty"`
	FromDate          string `json:"fromDate,omitempty"`
	ToDate            string `json:"toDate,omitempty"`
	DisasterEventID   int64  `json:"disasterEventId,omitempty"`
}

// GeoApplier translates a geographic division id into zero or more
// predicates over the record's location geometry or division ancestry.
// The engine folds in whatever it returns; failures are logged and
// treated as "no additional filtering from this source".
type GeoApplier interface {
	Predicates(ctx context.Context, divisionID int64) ([]Predicate, error)
}

// Expander is the sector subtree dependency, implemented by
// sector.Resolver.
type Expander interface {
	Expand(ctx context.Context, sectorID string) (sector.IDSet, error)
}

// Builder composes predicate lists. It never executes queries itself.
type Builder struct {
	sectors Expander
	geo     GeoApplier
	log     *zap.Logger
}

// NewBuilder creates a Builder. geo may be nil when the caller has no
// geography collaborator; log nil falls back to zap.NewNop.
func NewBuilder(sectors Expander, geo GeoApplier, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{sectors: sectors, geo: geo, log: log}
}

// Compose builds the ordered predicate list for a request. The tenant
// predicate always comes first; a missing tenant id is a caller defect,
// not a runtime condition, and fails composition outright.
//
// Sector expansion errors propagate so report builders can apply their
// own failure policies. Geography and date-parse problems degrade to
// "filter dropped" with a log line.
func (b *Builder) Compose(ctx context.Context, req Request) ([]Predicate, error) {
	if req.TenantID <= 0 {
		return nil, eris.New("filter: tenant id is required")
	}

	preds := []Predicate{
		{Expr: "dr.country_accounts_id = ?", Args: []any{req.TenantID}},
	}

	if req.ApprovalStatus != "" {
		// Callers send "published", "Published", "APPROVED"; the
		// case-insensitive match is intentional.
		preds = append(preds, Predicate{
			Expr: "dr.approval_status ILIKE ?",
			Args: []any{req.ApprovalStatus},
		})
	}

	// A subsector replaces the sector filter rather than narrowing it.
	sectorID := req.SectorID
	if req.SubSectorID != "" {
		sectorID = req.SubSectorID
	}
	if sectorID != "" {
		set, err := b.sectors.Expand(ctx, sectorID)
		if err != nil {
			return nil, eris.Wrapf(err, "filter: expand sector %s", sectorID)
		}
		if len(set) > 0 {
			preds = append(preds, Predicate{
				Expr: "dr.sector_id = ANY(?)",
				Args: []any{set.Sorted()},
			})
		}
	}

	// Hazard taxonomy levels are independent equality filters; the
	// composer does not validate that type/cluster/hazard agree.
	if req.HazardTypeID > 0 {
		preds = append(preds, Predicate{Expr: "he.hazard_type_id = ?", Args: []any{req.HazardTypeID}})
	}
	if req.HazardClusterID > 0 {
		preds = append(preds, Predicate{Expr: "he.hazard_cluster_id = ?", Args: []any{req.HazardClusterID}})
	}
	if req.SpecificHazardID > 0 {
		preds = append(preds, Predicate{Expr: "he.specific_hazard_id = ?", Args: []any{req.SpecificHazardID}})
	}

	if req.GeographicLevelID > 0 && b.geo != nil {
		geoPreds, err := b.geo.Predicates(ctx, req.GeographicLevelID)
		if err != nil {
			b.log.Warn("filter: geography collaborator failed, dropping geographic filter",
				zap.Int64("geographicLevelId", req.GeographicLevelID),
				zap.Error(err))
		} else {
			preds = append(preds, geoPreds...)
		}
	}

	if req.FromDate != "" {
		if d, err := flexdate.Parse(req.FromDate); err != nil {
			b.log.Warn("filter: unparsable fromDate dropped",
				zap.String("fromDate", req.FromDate), zap.Error(err))
		} else {
			preds = append(preds, Predicate{
				Expr: "dr.start_date >= ?",
				Args: []any{d.LowerBound()},
			})
		}
	}
	if req.ToDate != "" {
		if d, err := flexdate.Parse(req.ToDate); err != nil {
			b.log.Warn("filter: unparsable toDate dropped",
				zap.String("toDate", req.ToDate), zap.Error(err))
		} else {
			preds = append(preds, Predicate{
				Expr: "dr.end_date <= ?",
				Args: []any{d.UpperBound()},
			})
		}
	}

	if req.DisasterEventID > 0 {
		preds = append(preds, Predicate{
			Expr: "dr.disaster_event_id = ?",
			Args: []any{req.DisasterEventID},
		})
	}

	return preds, nil
}

// Combine ANDs predicates into a single expression, rewriting `?`
// markers to $n placeholders starting at startIdx, and returns the
// flattened argument list. startIdx lets a store put its own arguments
// ahead of the filter's.
func Combine(preds []Predicate, startIdx int) (string, []any) {
	if len(preds) == 0 {
		return "", nil
	}
	if startIdx < 1 {
		startIdx = 1
	}

	var sb strings.Builder
	var args []any
	n := startIdx

	for i, p := range preds {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		for _, ch := range p.Expr {
			if ch == '?' {
				sb.WriteString("$" + strconv.Itoa(n))
				n++
			} else {
				sb.WriteRune(ch)
			}
		}
		args = append(args, p.Args...)
	}

	return sb.String(), args
}

// WhereClause is Combine prefixed with " WHERE "; empty predicate lists
// yield an empty string.
func WhereClause(preds []Predicate, startIdx int) (string, []any) {
	expr, args := Combine(preds, startIdx)
	if expr == "" {
		return "", nil
	}
	return " WHERE " + expr, args
}
