package common

import (
	"fmt"

	"github.com/snapmission/photo-services/internal/storeerrors"
)

// ErrRecordNotFound is returned by the photo store when no record
// matches the query. The value lives in internal/storeerrors so the
// network package can return it without importing this package.
var ErrRecordNotFound = storeerrors.ErrRecordNotFound

// ErrDuplicateRecord is returned by the photo store when an insert
// hits the unique (user_id, mission_id) index. The upload path treats
// this as control flow, not as a failure: it means another upload for
// the same pair committed first, and the loser retries as an update.
var ErrDuplicateRecord = storeerrors.ErrDuplicateRecord

// ValidationError reports bad input on the upload or update path.
// It maps to a 4xx response and implies no side effects occurred.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
