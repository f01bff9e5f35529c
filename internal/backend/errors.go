package backend

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks transport-level failures: the backend (or the circuit
// breaker guarding it) could not be reached at all. Controllers map it to a
// generic connection message rather than surfacing internals.
var ErrUnavailable = errors.New("marketplace backend unreachable")

// APIError is an application-level failure: the backend answered but reported
// success:false or a non-2xx status. Message is the backend's own message
// when it sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Message)
}

// AsAPIError unwraps err to an *APIError if there is one in the chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
