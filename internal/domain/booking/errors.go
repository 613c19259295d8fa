package booking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition        = errors.New("invalid state transition")
	ErrInvalidSlot              = errors.New("invalid slot")
	ErrMissingAmount            = errors.New("booking amount not set")
	ErrMissingReason            = errors.New("reason is required")
	ErrEmailNotVerified         = errors.New("email verification required before proceeding")
	ErrPaymentNotRequired       = errors.New("payment is not required for offline bookings")
	ErrCancellationWindowClosed = errors.New("cancellation window closed")
	ErrNotCancellable           = errors.New("booking cannot be cancelled at its current stage")
	ErrInvalidState             = errors.New("invalid booking state")
	ErrNotFound                 = errors.New("booking not found")
	ErrConflict                 = errors.New("booking was modified by another transaction")
	ErrValidation               = errors.New("validation failed")
)

// InvalidTransitionError describes a rejected edge of the state graph.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

// Is lets errors.Is match ErrInvalidTransition.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func invalidState(op string, status Status) error {
	return fmt.Errorf("%w: cannot %s in status %s", ErrInvalidState, op, status)
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
