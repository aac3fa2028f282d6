package correlation

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a missing correlation
var ErrNotFound = errors.New("correlation not found")

// ErrInvalidState marks a lifecycle violation: verify/reject/re-fuse
// attempted on a correlation that is no longer proposed
var ErrInvalidState = errors.New("correlation is not in the proposed state")

// ValidationError rejects malformed input before any persistence
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
