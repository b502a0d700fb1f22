package attendance

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is. The typed errors below unwrap to them.
var (
	ErrValidation = errors.New("attendance: validation failed")
	ErrNotFound   = errors.New("attendance: class not found")
	ErrOutOfRange = errors.New("attendance: outside proximity radius")
	ErrForbidden  = errors.New("attendance: class not owned by teacher")
	ErrStorage    = errors.New("attendance: storage unavailable")
	ErrNoClasses  = errors.New("attendance: teacher has no classes")
)

// ValidationError reports a missing or malformed check-in field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("attendance: field %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports an unknown class id.
type NotFoundError struct {
	ClassID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("attendance: class %q not found", e.ClassID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// OutOfRangeError carries the measured distance, rounded to centimetres.
type OutOfRangeError struct {
	Distance  float64
	Threshold float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("attendance: distance %.2fm exceeds %.2fm", e.Distance, e.Threshold)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// ForbiddenError reports a class filter the teacher does not own.
type ForbiddenError struct {
	ClassID   string
	TeacherID string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("attendance: class %q not owned by teacher %q", e.ClassID, e.TeacherID)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// StorageError wraps an infrastructure failure. Its detail is for logs only.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("attendance: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }
