// Package apperr defines the error taxonomy shared by the lifecycle, timer
// and import packages: validation, not-found, conflict and per-row parse
// errors. Handlers map these onto HTTP statuses; nothing here is retried
// automatically.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError covers illegal state transitions, missing required fields,
// malformed durations/dates beyond tolerant parsing and duplicate keys on
// explicit create.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func Validationf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown id or order number.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func NotFound(entity string, key interface{}) error {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

// ConflictError reports a lost race on a per-activity or per-order lock.
// The losing caller should re-read and retry; the update was not applied.
type ConflictError struct {
	Entity string
	Key    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent update on %s %s", e.Entity, e.Key)
}

func Conflict(entity string, key interface{}) error {
	return &ConflictError{Entity: entity, Key: fmt.Sprint(key)}
}

// ParseError is a single import-row failure. It never aborts a batch; the
// reconciler collects it into the per-batch report.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}

func Parse(line int, reason string) error {
	return &ParseError{Line: line, Reason: reason}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var v *NotFoundError
	return errors.As(err, &v)
}

func IsConflict(err error) bool {
	var v *ConflictError
	return errors.As(err, &v)
}

// HTTPStatus maps a core error onto the status the JSON API returns.
func HTTPStatus(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
