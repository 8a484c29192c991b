package errs

import (
	"errors"
	"fmt"
)

// Common sentinel errors for cross-layer signaling. Services wrap them with
// fmt.Errorf("%w: ...") to add a human readable detail; the HTTP layer maps
// them with errors.Is.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid request")
	// ErrUnauthorized is returned when the caller identity is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAccountNotFound aborts any posting that references an unknown account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateName indicates another account already uses the normalised name.
	ErrDuplicateName = errors.New("account name already exists")
	// ErrUnbalanced means total debits and credits differ by more than the tolerance.
	ErrUnbalanced = errors.New("books do not balance")
	// ErrOverpayment rejects a payment larger than the loan's outstanding balance.
	ErrOverpayment = errors.New("overpayment")
	// ErrAccountMissing is a setup defect: a required named account does not exist.
	ErrAccountMissing = errors.New("required account missing")
	// ErrInvalidTransition rejects a month-end action from the wrong status.
	ErrInvalidTransition = errors.New("invalid month-end transition")
	// ErrTxConflict surfaces a store level write conflict (serialization failure).
	ErrTxConflict = errors.New("transaction conflict")
)

// ValidationError rejects caller input before anything is persisted. Code is
// the machine readable rule name surfaced to clients.
type ValidationError struct {
	Code  string
	Msg   string
	Cause error
}

func (e *ValidationError) Error() string { return e.Msg }

// Unwrap exposes ErrInvalid and the optional cause to errors.Is.
func (e *ValidationError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvalid, e.Cause}
	}
	return []error{ErrInvalid}
}

// Invalid builds a ValidationError with a formatted message.
func Invalid(code, format string, args ...any) error {
	return &ValidationError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// InvalidCause is Invalid with an underlying sentinel kept for errors.Is.
func InvalidCause(cause error, code, format string, args ...any) error {
	return &ValidationError{Code: code, Msg: fmt.Sprintf(format, args...), Cause: cause}
}
