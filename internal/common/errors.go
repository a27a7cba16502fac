// Package common defines the sentinel errors shared by the services and the
// HTTP layer. Callers should use errors.Is / errors.As to match them.
package common

import "errors"

var (
	// ErrUnauthorized covers missing, invalid or expired tokens and bad credentials.
	ErrUnauthorized = errors.New("Unauthorized")
	// ErrNotFound is returned both for absent records and for records the
	// caller may not see.
	ErrNotFound = errors.New("Not found")
	// ErrConflict is returned when an email is already registered.
	ErrConflict = errors.New("Already exist")
	// ErrNoContent is returned when content is requested for a folder.
	ErrNoContent = errors.New("A folder doesn't have content")
)

// ValidationError reports a missing or malformed request field. Message is
// sent to the client verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation errors, in the order the file hierarchy checks them.
var (
	ErrMissingName     = &ValidationError{Message: "Missing name"}
	ErrMissingType     = &ValidationError{Message: "Missing type"}
	ErrMissingData     = &ValidationError{Message: "Missing data"}
	ErrParentNotFound  = &ValidationError{Message: "Parent not found"}
	ErrParentNotFolder = &ValidationError{Message: "Parent is not a folder"}
	ErrInvalidData     = &ValidationError{Message: "Invalid data"}

	ErrMissingEmail    = &ValidationError{Message: "Missing email"}
	ErrMissingPassword = &ValidationError{Message: "Missing password"}
)
