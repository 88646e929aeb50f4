// Package errs defines the typed error taxonomy of the analytics engine.
// Callers distinguish error classes with errors.As/errors.Is so that a
// validation failure, a blown time budget, a skipped computation, and a
// partially-applied derived write each surface differently.
package errs

import (
	"context"
	"errors"
	"fmt"
)

// ErrRefreshInFlight is returned when a refresh is requested for a tenant
// that already has one running.
var ErrRefreshInFlight = errors.New("refresh already in flight for tenant")

// ValidationError marks malformed caller input: bad date ranges, unknown
// tenants, out-of-range parameters.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// TimeoutError marks a query or refresh that exceeded its time budget.
type TimeoutError struct {
	Op     string
	Budget string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %s exceeded budget %s", e.Op, e.Budget)
}

// ComputeError marks an aggregation that could not be performed, such as a
// median over zero eligible rows. The affected step is skipped and logged,
// never raised to the caller as a failure.
type ComputeError struct {
	Op  string
	Msg string
}

func (e *ComputeError) Error() string { return fmt.Sprintf("compute: %s: %s", e.Op, e.Msg) }

// ConsistencyError marks a derived-table write that was only partially
// applied. The refresh transaction protocol should make this unreachable;
// seeing one means the previous generation may be damaged.
type ConsistencyError struct {
	Table string
	Msg   string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency: table %s: %s", e.Table, e.Msg)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsTimeout reports whether err wraps a TimeoutError or a context deadline.
func IsTimeout(err error) bool {
	var t *TimeoutError
	return errors.As(err, &t) || errors.Is(err, context.DeadlineExceeded)
}

// FromContext converts a context cancellation observed during op into the
// typed timeout error; other errors pass through unchanged.
func FromContext(err error, op, budget string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Budget: budget}
	}
	return err
}
