package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"skill-match/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

var errNotConnected = fmt.Errorf("%w: database not connected", domain.ErrExternalDependencyUnavailable)

// retryableStates are server-side SQLSTATEs that clear up on their own.
var retryableStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"53300": true, // too_many_connections
	"57P01": true, // admin_shutdown
	"57P03": true, // cannot_connect_now
}

// Transient reports whether err is a connection, timeout or contention failure.
func Transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryableStates[pgErr.Code] || strings.HasPrefix(pgErr.Code, "08")
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// classify marks transient failures with domain.ErrExternalDependencyUnavailable and leaves the
// rest untouched, so pgx.ErrNoRows and constraint errors still match.
func classify(err error) error {
	if err == nil || errors.Is(err, domain.ErrExternalDependencyUnavailable) || !Transient(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrExternalDependencyUnavailable, err)
}
