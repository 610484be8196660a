package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCallbackToken is returned when a redirect callback carries no
	// token. Session state is left as it was.
	ErrNoCallbackToken = errors.New("callback did not include a token")

	// ErrSessionSuperseded means a logout (or another login) happened while
	// the operation was in flight; its result was discarded.
	ErrSessionSuperseded = errors.New("session changed while the request was in flight")

	// ErrNotRestored is returned by RefreshUser before Restore has finished.
	ErrNotRestored = errors.New("session is still being restored")
)

// DegradedError reports that a callback token was stored but the user
// profile could not be loaded. The session is nominally established and
// RefreshUser may succeed later.
type DegradedError struct {
	Err error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("authenticated, but profile load failed: %v", e.Err)
}

func (e *DegradedError) Unwrap() error {
	return e.Err
}
