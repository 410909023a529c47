package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used to classify DomainError values.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state transition")
	ErrConflict     = errors.New("conflict")
	ErrGateway      = errors.New("payment gateway error")
	ErrPersistence  = errors.New("persistence error")
)

// DomainError wraps a sentinel error with a human-readable message.
type DomainError struct {
	Err     error
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports that an entity could not be located.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s with id %s not found", entity, id),
	}
}

// NewValidationError reports malformed or rejected input.
func NewValidationError(message string) *DomainError {
	return &DomainError{Err: ErrValidation, Message: message}
}

// NewInvalidStateError reports a forbidden aggregate state transition.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidState,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

// NewConflictError reports a concurrent-modification conflict.
func NewConflictError(message string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: message}
}

// NewGatewayError reports a failed or non-success call to the payment gateway.
func NewGatewayError(message string) *DomainError {
	return &DomainError{Err: ErrGateway, Message: message}
}

// NewPersistenceError reports a failed store read or write.
func NewPersistenceError(message string) *DomainError {
	return &DomainError{Err: ErrPersistence, Message: message}
}
