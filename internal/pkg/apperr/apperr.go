// Package apperr holds the error kinds shared by every module. Handlers only
// need the kind to pick a status code; the Code on *Error is what clients see.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrIntegrity means a compensating step failed and stored counters may be wrong.
	ErrIntegrity = errors.New("integrity failure")
	ErrUpstream  = errors.New("upstream failure")
)

// Error is a business error with a stable client-facing code.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func New(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// ValidationError carries per-field problems (field -> rule).
type ValidationError struct {
	Fields map[string]string
}

func Invalid(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func InvalidField(field, rule string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: rule}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Integrity wraps the original failure and the failed compensation.
func Integrity(op string, cause, compensation error) error {
	return fmt.Errorf("%w: %s: %v (compensation failed: %v)", ErrIntegrity, op, cause, compensation)
}

// Upstream marks a collaborator failure.
func Upstream(service string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstream, service, err)
}

// KindOf returns the kind sentinel err belongs to, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrForbidden, ErrUnauthorized, ErrIntegrity, ErrUpstream} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
