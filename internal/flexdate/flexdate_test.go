package flexdate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{"2021", Date{Year: 2021}, false},
		{"2021-6", Date{Year: 2021, Month: 6}, false},
		{"2021-06", Date{Year: 2021, Month: 6}, false},
		{"2021-6-5", Date{Year: 2021, Month: 6, Day: 5}, false},
		{"2021-06-15", Date{Year: 2021, Month: 6, Day: 15}, false},
		{" 2021-06-15 ", Date{Year: 2021, Month: 6, Day: 15}, false},
		{"", Date{}, true},
		{"21", Date{}, true},
		{"2021-13", Date{}, true},
		{"2021-02-30", Date{}, true},
		{"2021-06-15-01", Date{}, true},
		{"june 2021", Date{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBounds(t *testing.T) {
	d, err := Parse("2021")
	require.NoError(t, err)
	assert.Equal(t, "2021-01-01", d.LowerBound())
	assert.Equal(t, "2021-12-31", d.UpperBound())

	d, err = Parse("2020-2")
	require.NoError(t, err)
	assert.Equal(t, "2020-02-29", d.UpperBound()) // leap year

	d, err = Parse("2021-06-15")
	require.NoError(t, err)
	assert.Equal(t, "2021-06-15", d.LowerBound())
	assert.Equal(t, "2021-06-15", d.UpperBound())
}

func TestCoversYearGranularity(t *testing.T) {
	d, err := Parse("2021")
	require.NoError(t, err)

	rec := time.Date(2021, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.True(t, d.Covers(rec))
	assert.False(t, d.Covers(rec.AddDate(1, 0, 0)))
}

func TestStringKeepsPrecision(t *testing.T) {
	for in, want := range map[string]string{
		"2021":     "2021",
		"2021-6":   "2021-06",
		"2021-6-5": "2021-06-05",
	} {
		d, err := Parse(in)
		require.NoError(t, err)
		assert.Equal(t, want, d.String())
	}
}
