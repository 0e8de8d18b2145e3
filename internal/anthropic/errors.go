package anthropic

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusOverloaded is the non-standard code the model service returns when it
// is over capacity. Transient, like 429.
const StatusOverloaded = 529

// APIError is a non-200 reply from the model service. The status code is
// preserved so callers can distinguish permanent configuration failures (400,
// 401) from transient capacity problems.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("model API request failed with status %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether a retry could plausibly succeed. Only rate
// limiting and overload qualify; anything else is permanent until the request
// or configuration changes.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == StatusOverloaded
}

// Response-shape errors: the transport call succeeded but the payload is
// unusable. Never retried.
var (
	ErrNoContent = errors.New("model response has no content array")
	ErrEmptyText = errors.New("model response content has no text")
)
