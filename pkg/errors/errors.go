package apperrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// ConflictError reports that a proposed time range collides with
// existing appointments. Carries the colliding ids so the caller can
// surface them.
type ConflictError struct {
	IDs []uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time range conflicts with %d existing appointment(s)", len(e.IDs))
}

// AsConflict unwraps err into a ConflictError if it is one.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
