package flash

import (
	"errors"
	"fmt"
)

// --- Error Definitions ---

var (
	ErrInvalidGeometry     = errors.New("invalid flash geometry")
	ErrInvariantViolation  = errors.New("flash invariant violated")
	ErrSlotOutOfRange      = errors.New("page slot out of range")
	ErrBlockAlreadyFull    = errors.New("block has no free page slots")
	ErrSlotNotValid        = errors.New("page slot does not hold a valid page")
	ErrNoOverProvisioning  = errors.New("physical block count must exceed logical block count")
	ErrNonPositiveGeometry = errors.New("geometry values must be positive")
)

// InvariantError reports corrupted engine bookkeeping. It is only ever raised
// with panic.
type InvariantError struct {
	Op     string
	Detail string
	Err    error
}

func (e *InvariantError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

func (e *InvariantError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvariantViolation, e.Err}
	}
	return []error{ErrInvariantViolation}
}

// PanicInvariant aborts the current operation with an *InvariantError.
func PanicInvariant(op string, cause error, format string, args ...any) {
	panic(&InvariantError{Op: op, Detail: fmt.Sprintf(format, args...), Err: cause})
}
