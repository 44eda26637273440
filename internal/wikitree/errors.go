package wikitree

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when the API body is not valid JSON.
var ErrMalformedResponse = errors.New("malformed wiki tree response")

// APIError reports a response whose code field is non-zero. The API uses
// it for missing permissions and expired sessions.
type APIError struct {
	Code int64
	Msg  string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("wiki tree API error: code=%d, msg=%s", e.Code, e.Msg)
}
