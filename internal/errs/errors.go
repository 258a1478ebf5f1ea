// Package errs provides the unified error type used across schemapub.
//
// Metadata sources wrap their driver errors into *errs.Error, the schema
// reader reports broken catalog data as ErrKindInconsistent, and publish
// sinks report rejected documents as ErrKindPublishFailed. Callers use the
// Is* predicates to handle errors without importing driver packages.
//
// Usage:
//
//	// In a metadata source, wrap native errors:
//	return errs.Wrap(errs.ErrKindTimeout, "list columns", pgErr)
//
//	// In the publisher, decide how to report:
//	if errs.IsSourceFailure(err) {
//	    log.Error("could not read catalog")
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no rows, no object, no endpoint
	ErrKindConnectionFailed         // cannot reach the backend
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // catalog query error
	ErrKindInvalidInput             // bad arguments or configuration
	ErrKindPermissionDenied         // access denied / auth failure
	ErrKindInconsistent             // catalog rows that cannot form a valid model
	ErrKindPublishFailed            // a sink rejected the document
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindInconsistent:
		return "inconsistent"
	case ErrKindPublishFailed:
		return "publish_failed"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by schemapub subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Inconsistent reports catalog data that cannot be folded into a valid
// schema model, such as a foreign-key row without a referenced column.
func Inconsistent(format string, args ...any) *Error {
	return Newf(ErrKindInconsistent, format, args...)
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a catalog query failure.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// IsInconsistent reports whether err describes malformed catalog rows.
func IsInconsistent(err error) bool {
	return KindOf(err) == ErrKindInconsistent
}

// IsPublishFailed reports whether a publish sink rejected the document.
func IsPublishFailed(err error) bool {
	return KindOf(err) == ErrKindPublishFailed
}

// IsSourceFailure reports whether err means the metadata source could not
// answer a query: connectivity, permissions, timeouts or a failing query.
func IsSourceFailure(err error) bool {
	switch KindOf(err) {
	case ErrKindConnectionFailed, ErrKindTimeout, ErrKindQueryFailed, ErrKindPermissionDenied:
		return true
	}
	return false
}

// KindOf extracts the ErrKind from the first *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
