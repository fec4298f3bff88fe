package disagg

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dris-project/impact-engine/internal/model"
)

// expectNoDisagg registers the five Invariant A sum queries in
// aggregation order.
func expectNoDisagg(mock pgxmock.PgxPoolIface, eventID int64, sums [5]string) {
	for i := range EffectKinds {
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(t\.`).
			WithArgs(eventID, "published").
			WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(sums[i]))
	}
}

// expectGrouped registers one grouped query per (dimension, kind) pair,
// serving rows only where the groups map has an entry.
func expectGrouped(mock pgxmock.PgxPoolIface, eventID int64, groups map[Dimension]map[EffectKind][][2]string) {
	for _, dim := range Dimensions {
		for _, kind := range EffectKinds {
			rows := pgxmock.NewRows([]string{dim.Column(), "sum"})
			for _, kv := range groups[dim][kind] {
				rows.AddRow(kv[0], kv[1])
			}
			mock.ExpectQuery(`SELECT hd\.` + dim.Column() + `,`).
				WithArgs(eventID, "published").
				WillReturnRows(rows)
		}
	}
}

func TestAggregateNoDisaggregationTotals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectNoDisagg(mock, 42, [5]string{"10", "5", "2", "100", "20"})
	expectGrouped(mock, 42, nil)

	agg := NewAggregator(mock, nil)
	s, err := agg.Aggregate(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(137), s.NoDisaggregation.Total)
	assert.Equal(t, EffectTotals{
		Deaths: 10, Injured: 5, Missing: 2, DirectlyAffected: 100, Displaced: 20,
	}, s.NoDisaggregation.Tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateMergesTablesPerDimensionValue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectNoDisagg(mock, 7, [5]string{"0", "0", "0", "0", "0"})
	expectGrouped(mock, 7, map[Dimension]map[EffectKind][][2]string{
		Sex: {
			Deaths:  {{"male", "3"}, {"female", "2"}},
			Injured: {{"male", "1"}},
		},
	})

	agg := NewAggregator(mock, nil)
	s, err := agg.Aggregate(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, []model.KV{{K: "female", V: 2}, {K: "male", V: 4}}, s.Disaggregations.Sex)
	assert.Empty(t, s.Disaggregations.Age)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateDisabilityCollapse(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectNoDisagg(mock, 9, [5]string{"0", "0", "0", "0", "0"})
	expectGrouped(mock, 9, map[Dimension]map[EffectKind][][2]string{
		Disability: {
			Deaths:  {{"none", "5"}, {"physical", "2"}},
			Injured: {{"visual", "3"}},
		},
	})

	agg := NewAggregator(mock, nil)
	s, err := agg.Aggregate(context.Background(), 9)
	require.NoError(t, err)

	assert.Equal(t, []model.KV{{K: "disability", V: 5}, {K: "none", V: 5}}, s.Disaggregations.Disability)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateCustomApprovalStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	for range EffectKinds {
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(t\.`).
			WithArgs(int64(1), "approved").
			WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow("0"))
	}
	for _, dim := range Dimensions {
		for range EffectKinds {
			mock.ExpectQuery(`SELECT hd\.` + dim.Column() + `,`).
				WithArgs(int64(1), "approved").
				WillReturnRows(pgxmock.NewRows([]string{dim.Column(), "sum"}))
		}
	}

	agg := NewAggregator(mock, nil).WithApprovalStatus("approved")
	_, err = agg.Aggregate(context.Background(), 1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateQueryErrorPropagates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(t\.`).
		WithArgs(int64(5), "published").
		WillReturnError(assert.AnError)

	agg := NewAggregator(mock, nil)
	_, err = agg.Aggregate(context.Background(), 5)
	require.Error(t, err)
}

func TestCollapseDisabilityConservesTotal(t *testing.T) {
	in := map[string]int64{"none": 4, "physical": 3, "visual": 2, "hearing": 1}
	out := collapseDisability(in)

	var inSum, outSum int64
	for _, v := range in {
		inSum += v
	}
	for _, v := range out {
		outSum += v
	}
	assert.Equal(t, inSum, outSum)
	assert.Equal(t, int64(6), out["disability"])
	assert.Equal(t, int64(4), out["none"])
	assert.Len(t, out, 2)
}

func TestFlattenSortsByKey(t *testing.T) {
	kvs := flatten(map[string]int64{"b": 2, "a": 1, "c": 3})
	assert.Equal(t, []model.KV{{K: "a", V: 1}, {K: "b", V: 2}, {K: "c", V: 3}}, kvs)
}
