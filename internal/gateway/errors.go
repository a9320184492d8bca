package gateway

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrRefreshFailed is returned when the session could not be renewed.
	// The stored credential is gone by the time a caller sees it.
	ErrRefreshFailed = errors.New("session refresh failed")
	// ErrUnauthorized is returned when a request is still rejected after a
	// successful refresh and one retry.
	ErrUnauthorized = errors.New("unauthorized after refresh")
	// ErrUnauthenticated means there was no refresh token to use. It only
	// reaches callers wrapped in ErrRefreshFailed.
	ErrUnauthenticated = errors.New("no credential available")
)

const maxErrorBody = 4 << 10

// StatusError is a response with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
}

// TransportError is a request that never got a response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsStatus reports whether err carries an HTTP response with the given status.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

func newStatusError(req *http.Request, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	return &StatusError{
		Method:     req.Method,
		URL:        req.URL.Redacted(),
		StatusCode: resp.StatusCode,
		Body:       body,
	}
}
