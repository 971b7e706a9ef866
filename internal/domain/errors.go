// Package domain defines the error taxonomy shared by the note, access,
// and comment services. Every error carries the HTTP status the boundary
// should surface it with.
package domain

import (
	"fmt"
	"net/http"
)

type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Validation reports a user-correctable field problem (length, emptiness).
func Validation(message string) *Error {
	return newError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message)
}

// InvalidClassification reports a (dimension, value) pair outside the catalog.
// Treated as client tampering, not a friendly form error.
func InvalidClassification(dimension, value string) *Error {
	return newError(http.StatusUnprocessableEntity, "INVALID_CLASSIFICATION",
		fmt.Sprintf("unknown classification %s=%s", dimension, value))
}

// Forbidden reports an authorization failure. The message never names the
// resource, so existence does not leak through the denial.
func Forbidden() *Error {
	return newError(http.StatusForbidden, "FORBIDDEN", "Forbidden")
}

// NotFound reports a missing note, comment, or user.
func NotFound(what string) *Error {
	return newError(http.StatusNotFound, "NOT_FOUND", what+" not found")
}

// SelfShareRejected reports an owner trying to share a note with themselves.
func SelfShareRejected() *Error {
	return newError(http.StatusUnprocessableEntity, "SELF_SHARE_REJECTED", "cannot share a note with its owner")
}

// Conflict reports a uniqueness violation, e.g. a taken username.
func Conflict(message string) *Error {
	return newError(http.StatusConflict, "CONFLICT", message)
}
