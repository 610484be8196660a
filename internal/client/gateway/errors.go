package gateway

import (
	"errors"
	"net/http"
)

// Kind classifies every failure that crosses the gateway boundary.
type Kind string

const (
	// KindNetwork: no response reached the client.
	KindNetwork Kind = "network"
	// KindHTTP: the backend answered with a non-2xx status.
	KindHTTP Kind = "http"
	// KindMalformed: a 2xx answer whose body is not the expected JSON.
	KindMalformed Kind = "malformed"
	// KindAuthRequired: an authenticated call with no stored credential.
	// Such calls never reach the network.
	KindAuthRequired Kind = "auth_required"
)

// Sentinels for errors.Is matching on the kind of an *Error.
var (
	ErrNetwork      = errors.New("network error")
	ErrHTTP         = errors.New("http error")
	ErrMalformed    = errors.New("malformed response")
	ErrAuthRequired = errors.New("authentication required")
)

var kindSentinels = map[Kind]error{
	KindNetwork:      ErrNetwork,
	KindHTTP:         ErrHTTP,
	KindMalformed:    ErrMalformed,
	KindAuthRequired: ErrAuthRequired,
}

// Error is the only error type returned by Request. Message is meant to be
// shown to the user as is.
type Error struct {
	Kind    Kind
	Status  int // HTTP status for KindHTTP and KindMalformed, otherwise 0
	Message string
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, so errors.Is(err, ErrAuthRequired) works
// through any amount of wrapping.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// MalformedError reports a 2xx response whose payload is unusable.
func MalformedError(status int, msg string) *Error {
	return &Error{Kind: KindMalformed, Status: status, Message: msg}
}

// KindOf returns the kind of a gateway error, or "" for any other error.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return ""
}

// IsUnauthorized reports whether err means the credential is missing or was
// rejected by the backend (401/403).
func IsUnauthorized(err error) bool {
	var gerr *Error
	if !errors.As(err, &gerr) {
		return false
	}
	switch gerr.Kind {
	case KindAuthRequired:
		return true
	case KindHTTP:
		return gerr.Status == http.StatusUnauthorized || gerr.Status == http.StatusForbidden
	default:
		return false
	}
}
