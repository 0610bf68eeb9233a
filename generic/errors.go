/*
errors.go - Centralized error kinds for the leave engine

PURPOSE:
  Every failure the core reports carries a Kind. The transport layer maps
  kinds to status codes; the core never knows about HTTP.

ERROR CATEGORIES:
  1. Lookup      - NotFound
  2. Access      - Unauthorized, Forbidden
  3. Input       - InvalidInput, InvalidRange
  4. Rules       - Overlap, InsufficientQuota, AlreadyDecided, InvalidState, Conflict
  5. Everything else is Internal

USAGE:
  Kind sentinels work with errors.Is:

    if errors.Is(err, generic.ErrOverlap) {
        ...
    }

  Any *Error matches the sentinel of its kind, whatever its message.

SEE ALSO:
  - leave/*: Raises these errors with user-facing messages
  - api/response.go: Maps kinds to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// KINDS
// =============================================================================

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindInvalidInput      Kind = "invalid_input"
	KindInvalidRange      Kind = "invalid_range"
	KindOverlap           Kind = "overlap"
	KindInsufficientQuota Kind = "insufficient_quota"
	KindAlreadyDecided    Kind = "already_decided"
	KindInvalidState      Kind = "invalid_state"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

// Error is a failure with a kind and a message safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNotFound          = NewError(KindNotFound, "not found")
	ErrUnauthorized      = NewError(KindUnauthorized, "unauthorized")
	ErrForbidden         = NewError(KindForbidden, "forbidden")
	ErrInvalidInput      = NewError(KindInvalidInput, "invalid input")
	ErrInvalidRange      = NewError(KindInvalidRange, "invalid date range")
	ErrOverlap           = NewError(KindOverlap, "overlapping leave")
	ErrInsufficientQuota = NewError(KindInsufficientQuota, "insufficient quota")
	ErrAlreadyDecided    = NewError(KindAlreadyDecided, "already decided")
	ErrInvalidState      = NewError(KindInvalidState, "invalid state")
	ErrConflict          = NewError(KindConflict, "conflict")
	ErrInternal          = NewError(KindInternal, "internal error")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientQuotaError provides details about a quota shortage.
type InsufficientQuotaError struct {
	UserID    string
	Year      int
	Available Amount
	Requested Amount
	Message   string
}

func (e *InsufficientQuotaError) Error() string {
	return fmt.Sprintf("insufficient quota for %s in %d: available %v, requested %v",
		e.UserID, e.Year, e.Available.Value, e.Requested.Value)
}

func (e *InsufficientQuotaError) Unwrap() error {
	return NewError(KindInsufficientQuota, e.Message)
}

// OverlapError names the existing active request that blocks a new one.
type OverlapError struct {
	UserID     string
	ExistingID string
	Requested  Period
	Message    string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("leave %s for %s overlaps request %s", e.Requested, e.UserID, e.ExistingID)
}

func (e *OverlapError) Unwrap() error {
	return NewError(KindOverlap, e.Message)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message of the first *Error in err's
// chain. Internal errors get a fixed message so details never leak.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "Internal Server Error"
}

// IsClientError returns true if the error is due to the caller's input or
// a business rule, as opposed to a server failure.
func IsClientError(err error) bool {
	k := KindOf(err)
	return k != KindInternal
}
