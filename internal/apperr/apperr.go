// Package apperr defines the small set of error kinds the triage pipeline
// distinguishes between, so handlers and the scheduler can map failures to
// HTTP status codes and retry decisions without string-matching messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a coarse error classification. Every error returned across a
// package boundary in this module should resolve to one of these via Is.
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindUnauthorized     Kind = "unauthorized"
	KindNotFound         Kind = "not_found"
	KindSchemaDisabled   Kind = "schema_disabled"
	KindConflict         Kind = "conflict"
	KindExternalFailure  Kind = "external_failure"
	KindInternal         Kind = "internal"
)

// Sentinel errors for each Kind. Wrap one with fmt.Errorf("...: %w", ErrX) at
// the point of failure; callers classify with errors.Is or Is(err).
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrSchemaDisabled  = errors.New("schema disabled")
	ErrConflict        = errors.New("conflict")
	ErrExternalFailure = errors.New("external failure")
	ErrInternal        = errors.New("internal error")
)

var sentinelByKind = map[Kind]error{
	KindInvalidInput:    ErrInvalidInput,
	KindUnauthorized:    ErrUnauthorized,
	KindNotFound:        ErrNotFound,
	KindSchemaDisabled:  ErrSchemaDisabled,
	KindConflict:        ErrConflict,
	KindExternalFailure: ErrExternalFailure,
	KindInternal:        ErrInternal,
}

// New wraps msg around the sentinel for kind so errors.Is(err, apperr.ErrX)
// keeps working after formatting.
func New(kind Kind, msg string) error {
	sentinel, ok := sentinelByKind[kind]
	if !ok {
		sentinel = ErrInternal
	}
	return fmt.Errorf("%s: %w", msg, sentinel)
}

// Wrap attaches kind's sentinel to an underlying error, preserving both
// chains so errors.Is matches the sentinel and the original cause.
func Wrap(kind Kind, msg string, cause error) error {
	sentinel, ok := sentinelByKind[kind]
	if !ok {
		sentinel = ErrInternal
	}
	if cause == nil {
		return fmt.Errorf("%s: %w", msg, sentinel)
	}
	return fmt.Errorf("%s: %w: %w", msg, sentinel, cause)
}

// Is reports whether err (or anything it wraps) matches kind's sentinel.
func Is(err error, kind Kind) bool {
	sentinel, ok := sentinelByKind[kind]
	if !ok {
		return false
	}
	return errors.Is(err, sentinel)
}

// HTTPStatus maps err to a status code for the HTTP dispatcher, defaulting
// to 500 when no known Kind matches.
func HTTPStatus(err error) int {
	switch {
	case Is(err, KindInvalidInput):
		return http.StatusBadRequest
	case Is(err, KindUnauthorized):
		return http.StatusUnauthorized
	case Is(err, KindNotFound):
		return http.StatusNotFound
	case Is(err, KindSchemaDisabled):
		return http.StatusBadRequest
	case Is(err, KindConflict):
		return http.StatusBadRequest
	case Is(err, KindExternalFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
