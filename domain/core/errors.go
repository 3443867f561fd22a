package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound = errors.New("resource not found")

	// Validation errors
	ErrInvalidInput      = errors.New("invalid input")
	ErrShapeMismatch     = errors.New("matrix shape mismatch")
	ErrEmptyCoordinates  = errors.New("spatial coordinates missing or empty")
	ErrInsufficientData  = errors.New("insufficient data for analysis")
	ErrNonFiniteValue    = errors.New("non-finite value in input")
	ErrUnknownEntity     = errors.New("entity key not present in dataset")
	ErrProximityMissing  = errors.New("proximity matrix not attached")
	ErrProximityMismatch = errors.New("proximity dimension does not match spot count")
)

// Error constructors with context
func NewShapeMismatchError(what string, gotRows, gotCols, wantRows, wantCols int) error {
	return fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrShapeMismatch, what, gotRows, gotCols, wantRows, wantCols)
}

func NewUnknownEntityError(key EntityKey) error {
	return fmt.Errorf("%w: %s", ErrUnknownEntity, key)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: validation failed for %s: %s", ErrInvalidInput, field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrEmptyCoordinates) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrNonFiniteValue) ||
		errors.Is(err, ErrUnknownEntity) ||
		errors.Is(err, ErrProximityMissing) ||
		errors.Is(err, ErrProximityMismatch)
}
