package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrServe            = errors.New("http serve failed")
	ErrBadRequest       = errors.New("bad request")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrNotString        = errors.New("must be a string")
)
