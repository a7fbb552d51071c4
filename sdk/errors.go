package mailgate

import (
	"errors"
	"fmt"
)

// APIError is returned when the server responds with a non-success status.
// Issue is set when a draft was rejected by validation.
type APIError struct {
	StatusCode int
	Message    string
	Issue      *Issue
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailgate: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsRejected reports whether err is a validation rejection from Prepare.
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Issue != nil
}
