package session

import "errors"

// ErrInvalidInput is returned when credentials fail local validation before
// any network call is made.
var ErrInvalidInput = errors.New("invalid input")
