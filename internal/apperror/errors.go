// Package apperror defines the error taxonomy shared by the order, account and
// discount services. Callers match on the concrete types with errors.As.
package apperror

import (
	"errors"
	"fmt"
)

// ValidationError reports an input rule violation on a single field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError reports an illegal state transition or a uniqueness violation.
type ConflictError struct {
	Message string
	Err     error
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return e.Err }

// PersistenceError wraps a storage failure with its backend code.
type PersistenceError struct {
	Message string
	Code    string
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (code %s)", e.Message, e.Code)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PropagationError reports a failed view recompute for a subscribed concern.
type PropagationError struct {
	Concern string
	Err     error
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("propagation %s: %v", e.Concern, e.Err)
}

func (e *PropagationError) Unwrap() error { return e.Err }

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func Conflict(message string, err error) error {
	return &ConflictError{Message: message, Err: err}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}
