package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrDatabase   = errors.New("database error")
)

// ValidationError reports caller input rejected before any store access.
type ValidationError struct {
	Parameter string
	Value     string
	Message   string
}

func (e *ValidationError) Error() string {
	if e.Parameter == "" {
		return "Validation error: " + e.Message
	}
	return fmt.Sprintf("Validation error for '%s': %s", e.Parameter, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a well-formed request that matched nothing.
type NotFoundError struct {
	Resource   string // "books", "authors", "book"
	Identifier string // the literal search value
	Criteria   string // e.g. "title pattern"
}

func (e *NotFoundError) Error() string {
	if e.Criteria == "" {
		return fmt.Sprintf("No %s found: '%s'", e.Resource, e.Identifier)
	}
	return fmt.Sprintf("No %s found with %s: '%s'", e.Resource, e.Criteria, e.Identifier)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DatabaseError wraps a store failure with the operation that hit it.
type DatabaseError struct {
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("Database error: %v", e.Err)
	}
	return fmt.Sprintf("Database error during %s: %v", e.Operation, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

func (e *DatabaseError) Is(target error) bool { return target == ErrDatabase }

func dbError(op string, err error) error {
	return &DatabaseError{Operation: op, Err: err}
}

func notFound(resource, identifier, criteria string) error {
	return &NotFoundError{Resource: resource, Identifier: identifier, Criteria: criteria}
}
