package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is matched (via errors.Is) by every 401 response.  The
// session that sent the call has already been torn down by the time the
// caller sees it.
var ErrUnauthorized = errors.New("unauthorized")

// ErrEmptyPayload is returned when a 2xx response lacks the resource the
// operation promised (e.g. "who am I" without a user).
var ErrEmptyPayload = errors.New("empty payload")

// GenericMessage is shown when a failure carries no message of its own.
const GenericMessage = "something went wrong, please try again"

// APIError is a non-2xx response from the remote API.  Message is the
// server's human-readable text, surfaced verbatim to the end user.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Message returns the text that should be displayed for err: the API's
// own message for business errors and GenericMessage for anything else.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericMessage
}
