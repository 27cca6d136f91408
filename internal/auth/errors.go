package auth

import "errors"

var (
	// ErrEdgeMismatch is returned when the stored record is missing, in the
	// wrong phase, or carries a different identity or setup token.
	ErrEdgeMismatch = errors.New("authorization edge mismatch")

	// ErrConflict is returned when the record changed between verification
	// and the conditional write.
	ErrConflict = errors.New("authorization record changed concurrently")

	// ErrNotAuthorized is returned when credentials are requested for an
	// identity that has not completed the flow.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrEmptyCredentials is returned when the code exchange yields neither
	// an access token nor a refresh token.
	ErrEmptyCredentials = errors.New("code exchange returned empty credentials")
)
