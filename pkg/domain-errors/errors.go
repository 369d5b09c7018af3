// Package domainerrors defines the typed error codes returned by services.
//
// Services return *Error values; transports map the code to a status. Stores
// never return these directly, they return pkg/platform/sentinel errors that
// services translate.
package domainerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies a domain error.
type Code string

const (
	CodeValidation          Code = "validation"
	CodeInvalidInput        Code = "invalid_input"
	CodeBadRequest          Code = "bad_request"
	CodeInvalidState        Code = "invalid_state"
	CodeIncomplete          Code = "incomplete_application"
	CodeDuplicateInProgress Code = "duplicate_in_progress"
	CodeConflict            Code = "conflict"
	CodeNotFound            Code = "not_found"
	CodeUnauthorized        Code = "unauthorized"
	CodeForbidden           Code = "forbidden"
	CodeTimeout             Code = "timeout"
	CodeAdapterUnresolved   Code = "adapter_unresolved"
	CodeAdapterError        Code = "adapter_error"
	CodePersistence         Code = "persistence"
	CodeInvariantViolation  Code = "invariant_violation"
	CodeInternal            Code = "internal_error"
)

// Error is a coded domain error. Missing is populated for incomplete
// submissions so callers get the precise list of outstanding items.
type Error struct {
	Code    Code
	Message string
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Missing) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// Incomplete reports the outstanding requirements of a submission.
func Incomplete(missing []string) error {
	items := make([]string, len(missing))
	copy(items, missing)
	return &Error{Code: CodeIncomplete, Message: "application is incomplete", Missing: items}
}

// HasCode reports whether the outermost domain error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost domain error, or CodeInternal when
// err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MissingItems returns the outstanding items attached to an incomplete error.
func MissingItems(err error) []string {
	var de *Error
	if errors.As(err, &de) {
		return de.Missing
	}
	return nil
}
