package opds

import (
	"errors"
	"fmt"
)

// ErrAuthenticationRequired indicates the catalog answered 401; the
// request is never retried with the same credentials.
var ErrAuthenticationRequired = errors.New("opds: catalog authentication required")

// ErrNetwork indicates a transport-level failure or timeout.
var ErrNetwork = errors.New("opds: network error")

// ErrInvalidFeed indicates a response body the Atom parser could not
// recover from. Partially valid feeds are returned best-effort instead.
var ErrInvalidFeed = errors.New("opds: unparseable feed document")

// ServerError represents any other non-2xx catalog response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("opds: server error: HTTP %d", e.StatusCode)
}
