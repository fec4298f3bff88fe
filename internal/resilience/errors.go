// Package resilience classifies store errors and retries the ones worth
// retrying. The most-damaging-events report retries transient failures
// once before falling back to its simplified query.
package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// transientPgCodes are SQLSTATE codes that clear up on retry: lock and
// serialization conflicts, cancelled/timed-out statements, and
// connection-capacity pressure.
var transientPgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"57014": true, // query_canceled (statement_timeout)
	"53300": true, // too_many_connections
	"53400": true, // configuration_limit_exceeded
}

// IsTransient reports whether the error is worth one more attempt:
// a transient Postgres SQLSTATE, a connection-class failure, or a
// network-level timeout/reset.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// A caller-cancelled context is final.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if transientPgCodes[pgErr.Code] {
			return true
		}
		// Class 08: connection exceptions.
		return strings.HasPrefix(pgErr.Code, "08")
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"server closed idle connection",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
