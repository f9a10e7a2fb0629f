package sync

import (
	"errors"
	"fmt"
)

// ErrNotConfigured indicates no sync server has been configured yet
var ErrNotConfigured = errors.New("sync server not configured")

// ErrAuthenticationFailed indicates the server rejected the credentials
var ErrAuthenticationFailed = errors.New("sync server rejected credentials")

// ErrBookNotFound indicates the server has no record for the document
var ErrBookNotFound = errors.New("book not known to sync server")

// ServerError represents a non-auth error response from the sync server
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("sync server error: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("sync server error: HTTP %d", e.StatusCode)
}
