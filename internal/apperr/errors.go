// Package apperr holds the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden  = errors.New("authorization denied")
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrCascade    = errors.New("cascade failure")
	ErrTransient  = errors.New("transient failure")
)

func Forbidden(capability string) error {
	return fmt.Errorf("%w: permission %s required", ErrForbidden, capability)
}

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(kind string, id any) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, kind, id)
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// CascadeError reports a side-effect batch that did not finish. RunID
// identifies the journal entry that can be resumed.
type CascadeError struct {
	RunID string
	Step  string
	Err   error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade %s failed at %s: %v", e.RunID, e.Step, e.Err)
}

func (e *CascadeError) Unwrap() []error {
	return []error{ErrCascade, e.Err}
}
