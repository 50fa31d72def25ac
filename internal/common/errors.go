package common

import "errors"

var (

	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// auth-specific errors
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid username/password")

	// document-specific errors
	ErrorUnknownKind      = errors.New("unknown document kind")
	ErrorNoDocumentKey    = errors.New("no document key specified")
	ErrorDuplicateKey     = errors.New("document key already exists")
	ErrorMissingCSRFToken = errors.New("missing CSRF token")
)
