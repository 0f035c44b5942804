package rosbridge

import "errors"

var (
	// ErrNotConnected is returned when an operation needs an open connection.
	ErrNotConnected = errors.New("rosbridge: not connected")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("rosbridge: client closed")
)
