// Package apperr defines the closed set of error kinds the workflow core returns.
// Every error surfaced by a service unwraps to exactly one of the sentinels below.
package apperr

import (
	"errors"
	"fmt"
)

// Kind names the category of a workflow error
type Kind string

const (
	KindUnauthorized      Kind = "unauthorized"
	KindIllegalTransition Kind = "illegal_transition"
	KindValidationFailed  Kind = "validation_failed"
	KindInvalidBatch      Kind = "invalid_batch"
	KindStaleBatchState   Kind = "stale_batch_state"
	KindNotFound          Kind = "not_found"
	KindInternal          Kind = "internal"
)

var (
	// ErrUnauthorized is returned when the actor lacks the capability or relationship required
	ErrUnauthorized = errors.New("unauthorized")

	// ErrIllegalTransition is returned when the requested edge does not exist from the current status
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrValidationFailed is returned when a field required by the operation is missing
	ErrValidationFailed = errors.New("validation failed")

	// ErrInvalidBatch is returned for empty selections or mixed payees
	ErrInvalidBatch = errors.New("invalid batch")

	// ErrStaleBatchState is returned when batch members diverged from their post-payment status
	ErrStaleBatchState = errors.New("stale batch state")

	// ErrNotFound is returned when a referenced claim, vendor, payment or request does not exist
	ErrNotFound = errors.New("not found")
)

var sentinels = map[Kind]error{
	KindUnauthorized:      ErrUnauthorized,
	KindIllegalTransition: ErrIllegalTransition,
	KindValidationFailed:  ErrValidationFailed,
	KindInvalidBatch:      ErrInvalidBatch,
	KindStaleBatchState:   ErrStaleBatchState,
	KindNotFound:          ErrNotFound,
}

// Error carries a kind and a human readable message
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the sentinel for the error kind so errors.Is works against it
func (e *Error) Unwrap() error {
	return sentinels[e.Kind]
}

func newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized builds an ErrUnauthorized error
func Unauthorized(format string, args ...interface{}) error {
	return newf(KindUnauthorized, format, args...)
}

// IllegalTransition builds an ErrIllegalTransition error
func IllegalTransition(format string, args ...interface{}) error {
	return newf(KindIllegalTransition, format, args...)
}

// ValidationFailed builds an ErrValidationFailed error
func ValidationFailed(format string, args ...interface{}) error {
	return newf(KindValidationFailed, format, args...)
}

// InvalidBatch builds an ErrInvalidBatch error
func InvalidBatch(format string, args ...interface{}) error {
	return newf(KindInvalidBatch, format, args...)
}

// StaleBatchState builds an ErrStaleBatchState error
func StaleBatchState(format string, args ...interface{}) error {
	return newf(KindStaleBatchState, format, args...)
}

// NotFound builds an ErrNotFound error
func NotFound(format string, args ...interface{}) error {
	return newf(KindNotFound, format, args...)
}

// KindOf reports the kind of err, or KindInternal when it is not a workflow error
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for kind, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}

// IsCallerError reports whether err was caused by the caller rather than infrastructure
func IsCallerError(err error) bool {
	kind := KindOf(err)
	return kind != "" && kind != KindInternal
}
