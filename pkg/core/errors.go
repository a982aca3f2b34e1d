package core

import "errors"

// Common errors.
var (
	ErrNotFound           = errors.New("document not found")
	ErrUnknownTab         = errors.New("unknown tab")
	ErrIndexOutOfRange    = errors.New("note index out of range")
	ErrEmptyTitle         = errors.New("note title is empty")
	ErrNoRemote           = errors.New("no remote store configured")
	ErrAnonymous          = errors.New("operation requires a signed-in user")
	ErrMalformedLocalData = errors.New("malformed local data")
	ErrInvalidKey         = errors.New("invalid key")
)
