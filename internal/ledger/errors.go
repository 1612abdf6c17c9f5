package ledger

import (
	"errors"
	"fmt"
)

// Ledger operation errors. Validation and balance errors are always detected
// before any write.
var (
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates an unknown product or token.
	ErrNotFound = errors.New("not found")
	// ErrLocked indicates the target token is locked.
	ErrLocked = errors.New("token locked")
	// ErrNotActivated indicates the target token has not been activated.
	ErrNotActivated = errors.New("token not activated")
	// ErrUnsupportedMode indicates a refill mode the token type rejects.
	ErrUnsupportedMode = errors.New("unsupported refill mode")
	// ErrAmountTooSmall indicates the fee consumes the entire amount or the
	// conversion floors to zero credits.
	ErrAmountTooSmall = errors.New("amount too small")
	// ErrPersistence indicates an underlying storage write failure.
	ErrPersistence = errors.New("persistence failure")
)

// InsufficientBalanceError reports a spend that exceeds the current balance.
// It carries the computed balance and the required amount to aid debugging
// ledger mismatches.
type InsufficientBalanceError struct {
	Balance  float64
	Required float64
}

// Error implements the error interface.
func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required $%.4f, available $%.4f", e.Required, e.Balance)
}

// validationErrorf wraps ErrValidation with a detail message.
func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
