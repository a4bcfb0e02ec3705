package cart

import "errors"

var (
	// ErrLoginRequired is returned by AddItem without contacting the backend when no session exists.
	ErrLoginRequired = errors.New("login required")
	// ErrRefreshFailed wraps a refresh error that followed a successful mutation.
	ErrRefreshFailed = errors.New("cart refresh failed")
	// ErrStopped is returned when the manager's worker is no longer running.
	ErrStopped = errors.New("cart manager stopped")
)
