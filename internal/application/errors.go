package application

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when a caller fails authentication.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when a resource is already booked for an overlapping event.
	ErrConflict = errors.New("application: resource conflict")
)

// Entity names reported by NotFoundError.
const (
	EntityEvent    = "event"
	EntityResource = "resource"
)

// NotFoundError identifies which entity was missing. It matches ErrNotFound
// with errors.Is.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError reports the first committed booking that blocks an
// allocation. It matches ErrConflict with errors.Is.
type ConflictError struct {
	ResourceID         string
	ResourceName       string
	EventID            string
	ConflictingEventID string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("resource %q (%s) is already booked by event %q", e.ResourceID, e.ResourceName, e.ConflictingEventID)
}

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver,
// prefixing each field name.
func (v *ValidationError) merge(prefix string, other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(prefix+field, msg)
	}
}
