package db

import (
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rotisserie/eris"
)

// NumericToFloat converts a scanned SUM() result to float64. A NULL sum
// (no matching rows) is 0, not an error.
func NumericToFloat(n pgtype.Numeric) (float64, error) {
	if !n.Valid {
		return 0, nil
	}
	if n.NaN {
		return 0, eris.New("db: numeric is NaN")
	}
	f, err := n.Float64Value()
	if err != nil {
		return 0, eris.Wrap(err, "db: numeric to float64")
	}
	return f.Float64, nil
}

// NumericToInt converts a scanned SUM() over integer columns to int64
// without going through a float round trip. Fractional or out-of-range
// values are an error.
func NumericToInt(n pgtype.Numeric) (int64, error) {
	if !n.Valid {
		return 0, nil
	}
	if n.NaN {
		return 0, eris.New("db: numeric is NaN")
	}
	if n.Int == nil {
		return 0, nil
	}
	v := new(big.Int).Set(n.Int)
	exp := n.Exp
	for ; exp > 0; exp-- {
		v.Mul(v, big.NewInt(10))
	}
	if exp < 0 {
		// A sum of integer columns never carries decimal places; a
		// negative exponent here means the source column changed type.
		rem := new(big.Int)
		div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-exp)), nil)
		v.DivMod(v, div, rem)
		if rem.Sign() != 0 {
			return 0, eris.Errorf("db: numeric has fractional part (exp=%d)", n.Exp)
		}
	}
	if !v.IsInt64() {
		return 0, eris.New("db: numeric overflows int64")
	}
	return v.Int64(), nil
}
