package session

import "errors"

var (
	// ErrStoreUnavailable wraps failures of the underlying token storage.
	ErrStoreUnavailable = errors.New("token store unavailable")
	// ErrStaleGeneration is returned when SetUser targets a token that was replaced or cleared.
	ErrStaleGeneration = errors.New("session token changed")
	// ErrEmptyToken is returned when saving an empty token.
	ErrEmptyToken = errors.New("empty access token")
)
