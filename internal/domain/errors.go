package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors
var (
	ErrQueueBusy     = errors.New("price update queue is busy")
	ErrQueueEmpty    = errors.New("price update queue has nothing to process")
	ErrTokenNotFound = errors.New("oauth token not found")
	ErrTokenExpired  = errors.New("oauth refresh token expired")
)

// MissingColumnError is returned when a spreadsheet lacks required columns
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column(s): %s", strings.Join(e.Columns, ", "))
}

// ValidationError rejects caller input before any remote call is made
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RemoteCallError is a non-2xx response or transport failure from the
// marketplace API. StatusCode is 0 for transport failures.
type RemoteCallError struct {
	Operation  string
	StatusCode int
	Code       string
	Message    string
	Details    []string
	Body       string
	Err        error
}

func (e *RemoteCallError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: request failed: %v", e.Operation, e.Err)
	}

	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	if len(e.Details) > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("%s: status %d: %s", e.Operation, e.StatusCode, msg)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether the provider rejected the payload itself
func (e *RemoteCallError) IsValidation() bool {
	return e.StatusCode == http.StatusUnprocessableEntity
}

// Temporary reports whether repeating the same call may succeed
func (e *RemoteCallError) Temporary() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// IsTemporary reports whether err is a RemoteCallError worth repeating
func IsTemporary(err error) bool {
	var remote *RemoteCallError
	return errors.As(err, &remote) && remote.Temporary()
}
