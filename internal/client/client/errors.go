package client

import "errors"

var (
	// ErrUnavailable indicates the server could not be reached at all.
	ErrUnavailable = errors.New("server unavailable")

	// ErrUnauthorized indicates the session token was missing or rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoCSRFToken indicates the token source had no token to attach.
	ErrNoCSRFToken = errors.New("no CSRF token available")
)
