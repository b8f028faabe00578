package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Standardized quote store errors
var (
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateClient   = errors.New("client number already exists")
	ErrUnknownMaterial   = errors.New("unknown material")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrQuoteNotFound     = errors.New("quote not found")
	ErrCorruptStore      = errors.New("corrupt store")
	ErrBlockSize         = errors.New("unexpected block size")
	ErrFieldTooLong      = errors.New("field exceeds fixed width")
	ErrInvalidRow        = errors.New("invalid stock row")
)

// ValidationError collects every problem found in a single input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Add records a problem.
func (e *ValidationError) Add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// OrNil returns nil when nothing was recorded so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}

// CorruptionError reports a trailing partial block, usually left behind by a
// write interrupted mid-block.
type CorruptionError struct {
	Path      string
	Offset    int64
	Got       int
	BlockSize int
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%s: %s has a %d byte tail at offset %d (block size %d)",
		ErrCorruptStore, e.Path, e.Got, e.Offset, e.BlockSize)
}

func (e *CorruptionError) Unwrap() error {
	return ErrCorruptStore
}
