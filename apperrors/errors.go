package apperrors

import "errors"

// Kind classifies an error so the HTTP layer can map it to a stable status code.
type Kind int

const (
	// KindValidation is a malformed or missing field; always recoverable by the caller.
	KindValidation Kind = iota
	// KindNotFound is a referenced entity that does not exist.
	KindNotFound
	// KindConflict is a lost concurrent-mutation race or an invalid state transition.
	KindConflict
	// KindPermissionDenied is a failed (fail-closed) permission check.
	KindPermissionDenied
	// KindBusinessRule is a domain rule violation (empty cart, unknown zone, late cancellation).
	KindBusinessRule
	// KindUnavailable is a persistence failure that survived the retry.
	KindUnavailable
)

// Error is the application error type. Code is a stable, client-visible
// identifier; Message is human-readable detail.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation creates a validation error.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NotFound creates a not-found error.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Conflict creates a conflict error.
func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// PermissionDenied creates a permission-denied error.
func PermissionDenied(code, message string) *Error {
	return &Error{Kind: KindPermissionDenied, Code: code, Message: message}
}

// BusinessRule creates a business-rule error.
func BusinessRule(code, message string) *Error {
	return &Error{Kind: KindBusinessRule, Code: code, Message: message}
}

// Unavailable wraps a persistence failure that should be retried by the client.
func Unavailable(message string, err error) *Error {
	return &Error{Kind: KindUnavailable, Code: "SERVICE_UNAVAILABLE", Message: message, Err: err}
}

// As extracts an *Error from err, or returns nil.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr := As(err)
	return appErr != nil && appErr.Kind == kind
}
