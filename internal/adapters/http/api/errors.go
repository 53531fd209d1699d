package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrMissingToken = errors.New("missing bearer token")
	ErrNotYours     = errors.New("digest belongs to another user")
)
