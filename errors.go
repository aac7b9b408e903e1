// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"github.com/cockroachdb/errors"
)

// Error returns the error status of the Forest, or the empty string if the
// last operation succeeded. Kept for parity with rudd's Error()/Errored()
// pair: a caller that doesn't want to check an error return on every single
// BDD operation can instead check this once at the end of a sequence of
// calls, the same trade-off rudd makes.
func (f *Forest) Error() string {
	if f.lastErr == nil {
		return ""
	}
	return f.lastErr.Error()
}

// Errored reports whether an operation has recorded a recoverable error
// since the last call that cleared it.
func (f *Forest) Errored() bool {
	return f.lastErr != nil
}

// seterror records a recoverable error (a bad Node argument, an out-of-range
// variable) and returns the zero Node, following rudd's seterror contract:
// operations return a usable zero value plus a sticky error flag instead of
// a Go error on every call, since the hot path (Apply, Ite, ...) is called
// far too often for two-value returns to stay ergonomic.
func (f *Forest) seterror(format string, args ...interface{}) Node {
	f.lastErr = errors.Newf(format, args...)
	f.log.Debug().Err(f.lastErr).Msg("operation error")
	return 0
}

// fatal wraps a condition the caller cannot recover from (the unique table
// could not grow, the worker pool is misconfigured) as a panic, matching
// the pack's convention (cockroachdb/errors) of using panic/recover only
// for conditions that indicate a programming error or resource exhaustion,
// never for ordinary control flow.
func (f *Forest) fatal(err error) {
	panic(errors.Wrap(err, "sylvan: unrecoverable"))
}
