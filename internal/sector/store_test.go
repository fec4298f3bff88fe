package sector

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSectorsByParent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectQuery(`SELECT id FROM sectors WHERE parent_id = \$1`).
		WithArgs(int64(11)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(12)).AddRow(int64(13)))

	ids, err := store.SectorsByParent(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 13}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreExpandCTE(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectQuery(`WITH RECURSIVE subtree`).
		WithArgs(int64(11)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).
			AddRow(int64(11)).AddRow(int64(12)).AddRow(int64(13)))

	set, err := store.ExpandCTE(context.Background(), 11)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{11, 12, 13}, set.Sorted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreExpandCTEAlwaysContainsRoot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	// A sector absent from the table still expands to itself.
	mock.ExpectQuery(`WITH RECURSIVE subtree`).
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	set, err := store.ExpandCTE(context.Background(), 99)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{99}, set.Sorted())
}

func TestStoreNamesByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(mock)

	mock.ExpectQuery(`SELECT id, name FROM sectors WHERE id = ANY`).
		WithArgs([]int64{11, 12}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).
			AddRow(int64(11), "Agriculture").
			AddRow(int64(12), "Crops"))

	names, err := store.NamesByID(context.Background(), []int64{11, 12})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{11: "Agriculture", 12: "Crops"}, names)

	empty, err := store.NamesByID(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
