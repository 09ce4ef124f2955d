// Package besteffort wraps side effects that must not fail the primary
// request, such as metadata inserts and log-sink appends.
package besteffort

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/rs/zerolog"
)

// ErrUnavailable marks an upstream that answered but could not serve the
// call (5xx, connection pool exhausted, and the like). Callers wrap their
// errors with it to opt into being swallowed.
var ErrUnavailable = errors.New("service unavailable")

// Run executes fn and logs the outcome. Expected transient failures are
// swallowed and reported at warn level; anything else is logged at error
// level and returned so programming bugs stay visible.
func Run(logger zerolog.Logger, op string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	if Transient(err) {
		logger.Warn().Err(err).Str("op", op).Msg("best-effort side effect failed")
		return nil
	}

	logger.Error().Err(err).Str("op", op).Msg("side effect failed")
	return err
}

func Transient(err error) bool {
	if errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
