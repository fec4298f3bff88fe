package filter

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dris-project/impact-engine/internal/sector"
)

type stubExpander struct {
	sets map[string]sector.IDSet
	err  error
}

func (s *stubExpander) Expand(_ context.Context, id string) (sector.IDSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	if set, ok := s.sets[id]; ok {
		return set, nil
	}
	return sector.IDSet{}, nil
}

type stubGeo struct {
	preds []Predicate
	err   error
}

func (s *stubGeo) Predicates(context.Context, int64) ([]Predicate, error) {
	return s.preds, s.err
}

func idSet(ids ...int64) sector.IDSet {
	set := sector.IDSet{}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func exprs(preds []Predicate) []string {
	out := make([]string, len(preds))
	for i, p := range preds {
		out[i] = p.Expr
	}
	return out
}

func TestComposeRequiresTenant(t *testing.T) {
	b := NewBuilder(&stubExpander{}, nil, nil)

	_, err := b.Compose(context.Background(), Request{})
	require.Error(t, err)
}

func TestComposeTenantOnly(t *testing.T) {
	b := NewBuilder(&stubExpander{}, nil, nil)

	preds, err := b.Compose(context.Background(), Request{TenantID: 7})
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, "dr.country_accounts_id = ?", preds[0].Expr)
	assert.Equal(t, []any{int64(7)}, preds[0].Args)
}

func TestComposeAbsentFieldsProduceNoPredicates(t *testing.T) {
	b := NewBuilder(&stubExpander{}, &stubGeo{}, nil)

	preds, err := b.Compose(context.Background(), Request{
		TenantID:       3,
		ApprovalStatus: "",
		SectorID:       "",
		FromDate:       "",
	})
	require.NoError(t, err)
	assert.Len(t, preds, 1, "absence must never mean 'equals empty'")
}

func TestComposeApprovalStatusCaseInsensitive(t *testing.T) {
	b := NewBuilder(&stubExpander{}, nil, nil)

	preds, err := b.Compose(context.Background(), Request{TenantID: 1, ApprovalStatus: "Published"})
	require.NoError(t, err)
	assert.Contains(t, exprs(preds), "dr.approval_status ILIKE ?")
}

func TestComposeSectorSubtree(t *testing.T) {
	exp := &stubExpander{sets: map[string]sector.IDSet{"11": idSet(11, 12, 13)}}
	b := NewBuilder(exp, nil, nil)

	preds, err := b.Compose(context.Background(), Request{TenantID: 1, SectorID: "11"})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "dr.sector_id = ANY(?)", preds[1].Expr)
	assert.Equal(t, []any{[]int64{11, 12, 13}}, preds[1].Args)
}

func TestComposeSubSectorReplacesSector(t *testing.T) {
	exp := &stubExpander{sets: map[string]sector.IDSet{
		"11": idSet(11, 12, 13),
		"12": idSet(12),
	}}
	b := NewBuilder(exp, nil, nil)

	preds, err := b.Compose(context.Background(), Request{
		TenantID: 1, SectorID: "11", SubSectorID: "12",
	})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, []any{[]int64{12}}, preds[1].Args, "subsector replaces, not narrows")
}

func TestComposeUnparsableSectorDropsFilter(t *testing.T) {
	b := NewBuilder(&stubExpander{}, nil, nil)

	preds, err := b.Compose(context.Background(), Request{TenantID: 1, SectorID: "garbage"})
	require.NoError(t, err)
	assert.Len(t, preds, 1)
}

func TestComposeSectorExpansionErrorPropagates(t *testing.T) {
	b := NewBuilder(&stubExpander{err: eris.New("boom")}, nil, nil)

	_, err := b.Compose(context.Background(), Request{TenantID: 1, SectorID: "11"})
	require.Error(t, err)
}

func TestComposeHazardTaxonomyIndependent(t *testing.T) {
	b := NewBuilder(&stubExpander{}, nil, nil)

	preds, err := b.Compose(context.Background(), Request{
		TenantID:         1,
		HazardTypeID:     2,
		HazardClusterID:  30,
		SpecificHazardID: 400,
	})
	require.NoError(t, err)
	got := exprs(preds)
	assert.Contains(t, got, "he.hazard_type_id = ?")
	assert.Contains(t, got, "he.hazard_cluster_id = ?")
	assert.Contains(t, got, "he.specific_hazard_id = ?")
}

func TestComposeGeographyErrorDropsFilter(t *testing.T) {
	b := NewBuilder(&stubExpander{}, &stubGeo{err: eris.New("division service down")}, nil)

	preds, err := b.Compose(context.Background(), Request{TenantID: 1, GeographicLevelID: 5})
	require.NoError(t, err, "geography failures are never fatal")
	assert.Len(t, preds, 1)
}

func TestComposeGeographyPredicatesFoldedIn(t *testing.T) {
	geo := &stubGeo{preds: []Predicate{
		{Expr: "ST_Intersects(dr.geom, ?)", Args: []any{[]byte{1}}},
	}}
	b := NewBuilder(&stubExpander{}, geo, nil)

	preds, err := b.Compose(context.Background(), Request{TenantID: 1, GeographicLevelID: 5})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "ST_Intersects(dr.geom, ?)", preds[1].Expr)
}

func TestComposeDateRange(t *testing.T) {
	b := NewBuilder(&stubExpander{}, nil, nil)

	preds, err := b.Compose(context.Background(), Request{
		TenantID: 1, FromDate: "2021", ToDate: "2022-3",
	})
	require.NoError(t, err)
	require.Len(t, preds, 3)
	assert.Equal(t, []any{"2021-01-01"}, preds[1].Args)
	assert.Equal(t, []any{"2022-03-31"}, preds[2].Args)
}

func TestComposeUnparsableDatesDropped(t *testing.T) {
	b := NewBuilder(&stubExpander{}, nil, nil)

	preds, err := b.Compose(context.Background(), Request{
		TenantID: 1, FromDate: "not-a-date", ToDate: "also bad",
	})
	require.NoError(t, err)
	assert.Len(t, preds, 1)
}

func TestComposeEventID(t *testing.T) {
	b := NewBuilder(&stubExpander{}, nil, nil)

	preds, err := b.Compose(context.Background(), Request{TenantID: 1, DisasterEventID: 42})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "dr.disaster_event_id = ?", preds[1].Expr)
}

func TestCombineRenumbersPlaceholders(t *testing.T) {
	preds := []Predicate{
		{Expr: "a = ?", Args: []any{1}},
		{Expr: "b = ANY(?)", Args: []any{[]int64{2, 3}}},
		{Expr: "c BETWEEN ? AND ?", Args: []any{4, 5}},
	}

	expr, args := Combine(preds, 3)
	assert.Equal(t, "a = $3 AND b = ANY($4) AND c BETWEEN $5 AND $6", expr)
	assert.Equal(t, []any{1, []int64{2, 3}, 4, 5}, args)
}

func TestCombineEmpty(t *testing.T) {
	expr, args := Combine(nil, 1)
	assert.Empty(t, expr)
	assert.Empty(t, args)

	where, args := WhereClause(nil, 1)
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestWhereClause(t *testing.T) {
	where, args := WhereClause([]Predicate{{Expr: "x = ?", Args: []any{9}}}, 1)
	assert.Equal(t, " WHERE x = $1", where)
	assert.Equal(t, []any{9}, args)
}
