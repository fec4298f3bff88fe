package resilience

import (
	"context"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransientPgCodes(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{"serialization failure", "40001", true},
		{"deadlock", "40P01", true},
		{"statement timeout", "57014", true},
		{"too many connections", "53300", true},
		{"connection exception class", "08006", true},
		{"syntax error", "42601", false},
		{"undefined table", "42P01", false},
		{"unique violation", "23505", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &pgconn.PgError{Code: tt.code}
			assert.Equal(t, tt.want, IsTransient(err))
		})
	}
}

func TestIsTransientWrappedPgError(t *testing.T) {
	err := eris.Wrap(&pgconn.PgError{Code: "40P01"}, "report: query events")
	assert.True(t, IsTransient(err))
}

func TestIsTransientNetworkErrors(t *testing.T) {
	assert.True(t, IsTransient(syscall.ECONNRESET))
	assert.True(t, IsTransient(eris.New("read tcp: i/o timeout")))
	assert.False(t, IsTransient(eris.New("column does not exist")))
	assert.False(t, IsTransient(nil))
}

func TestIsTransientContextErrorsAreFinal(t *testing.T) {
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(context.DeadlineExceeded))
}
