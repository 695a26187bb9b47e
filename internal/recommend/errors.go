package recommend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// StatusNetwork marks an APIError that never reached the backend
const StatusNetwork = 0

// APIError is returned by every Client call that fails. Status carries the
// HTTP status, or StatusNetwork for transport failures.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == StatusNetwork {
		return fmt.Sprintf("network error: %s", e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same request may succeed
func (e *APIError) Retryable() bool {
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	switch {
	case e.Status == StatusNetwork:
		return true
	case e.Status == http.StatusRequestTimeout, e.Status == http.StatusTooManyRequests:
		return true
	case e.Status >= 500:
		return true
	default:
		return false
	}
}

// IsRetryable classifies any error returned by the client. Errors that are
// not APIErrors never reached the backend's retry contract, such as an
// invalid decision kind, and are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or -1 when err is not an APIError
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return -1
}
