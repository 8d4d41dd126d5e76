package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSlotConflict = errors.New("slot already reserved or awaiting payment")
	ErrNotFound     = errors.New("not found")
)

// ValidationError reports malformed input, rejected before the store is
// touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError wraps a persistence failure. Callers see a generic failure; the
// cause is kept for logs.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
