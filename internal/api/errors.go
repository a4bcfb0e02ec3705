package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is returned for any 401. The session has already been expired when it is seen.
var ErrUnauthorized = errors.New("unauthorized")

// ErrCircuitOpen is returned without contacting the backend while the breaker is open.
var ErrCircuitOpen = errors.New("backend circuit open")

// StatusError is a non-2xx backend response other than 401.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// StatusCode returns the backend status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	return 0
}
