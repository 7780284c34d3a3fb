package services

import (
	"errors"
	"fmt"
)

// ErrInvalidToken covers unknown, retired and expired table tokens. Callers
// are expected to redirect on it rather than fail.
var ErrInvalidToken = errors.New("invalid or expired token")

var ErrInvalidTransition = errors.New("order status transition not allowed")

// ErrIdempotencyKeyReused is returned when a key already belongs to an order
// from a different table.
var ErrIdempotencyKeyReused = errors.New("idempotency key already used for another order")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

// PersistenceError wraps a storage failure. Its message stays generic so it
// can be shown to clients; the cause is available through Unwrap.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s", e.Op)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
