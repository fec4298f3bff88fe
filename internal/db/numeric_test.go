package db

import (
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(i int64, exp int32) pgtype.Numeric {
	return pgtype.Numeric{Int: big.NewInt(i), Exp: exp, Valid: true}
}

func TestNumericToInt(t *testing.T) {
	tests := []struct {
		name    string
		in      pgtype.Numeric
		want    int64
		wantErr bool
	}{
		{"null sum is zero", pgtype.Numeric{}, 0, false},
		{"plain integer", num(1250, 0), 1250, false},
		{"positive exponent", num(5, 3), 5000, false},
		{"trailing-zero decimal", num(12500, -1), 1250, false},
		{"fractional", num(12505, -1), 0, true},
		{"nan", pgtype.Numeric{NaN: true, Valid: true}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NumericToInt(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumericToFloat(t *testing.T) {
	got, err := NumericToFloat(num(250075, -2))
	require.NoError(t, err)
	assert.InDelta(t, 2500.75, got, 1e-9)

	got, err = NumericToFloat(pgtype.Numeric{})
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestNumericToIntExactAtScale(t *testing.T) {
	// 9007199254740993 is unrepresentable in float64; the big.Int path
	// must carry it through unchanged.
	v := int64(9007199254740993)
	got, err := NumericToInt(num(v, 0))
	require.NoError(t, err)
	assert.Equal(t, v, got)
}
