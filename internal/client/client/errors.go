package client

import "errors"

// ErrUnavailable means the server could not be reached or answered
// Unavailable/DeadlineExceeded.
var ErrUnavailable = errors.New("server unavailable")
