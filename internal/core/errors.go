// Package core holds cross-cutting primitives: typed service errors,
// opaque code generation, and paging helpers.
package core

import (
	"errors"
	"fmt"
)

// Kind classifies a service error for the calling surface.
type Kind int

const (
	// KindInternal never expected; fatal consistency bug, always logged.
	KindInternal Kind = iota
	// KindParameter caller-fixable bad input (unsupported chain, token, biz).
	KindParameter
	// KindNotFound referenced transaction/escrow/contract absent.
	KindNotFound
	// KindConflict attempt to mutate a terminal or write-once field with a
	// genuinely different value.
	KindConflict
	// KindUnavailable external chain/oracle call failed or timed out;
	// retryable by the caller with backoff.
	KindUnavailable
)

// Stable wire codes, mirrored by the HTTP surface.
func (k Kind) Code() string {
	switch k {
	case KindParameter:
		return "50400"
	case KindNotFound:
		return "50404"
	case KindConflict:
		return "50409"
	case KindUnavailable:
		return "50503"
	default:
		return "50000"
	}
}

// Error is the typed error returned by all core services. The core never
// formats human-facing text; Message is a stable developer-facing string.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on error kind via the sentinel constructors below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	var wrapped error
	for _, a := range args {
		if err, ok := a.(error); ok {
			wrapped = err
		}
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: wrapped}
}

// ParameterError reports caller-fixable bad input.
func ParameterError(format string, args ...interface{}) error {
	return newError(KindParameter, format, args...)
}

// NotFoundError reports an absent referenced entity.
func NotFoundError(format string, args ...interface{}) error {
	return newError(KindNotFound, format, args...)
}

// ConflictError reports a write against a terminal or write-once field.
func ConflictError(format string, args ...interface{}) error {
	return newError(KindConflict, format, args...)
}

// UnavailableError wraps an external dependency failure; retryable.
func UnavailableError(format string, args ...interface{}) error {
	return newError(KindUnavailable, format, args...)
}

// InternalError reports a broken internal invariant. Never user-caused.
func InternalError(format string, args ...interface{}) error {
	return newError(KindInternal, format, args...)
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
