package shell

import "errors"

var (
	// ErrTimeout is returned when a command exceeds its timeout.
	ErrTimeout = errors.New("command timeout")

	ErrCommandRequired = errors.New("command is required")
	ErrInvalidTimeout  = errors.New("timeout_seconds must be >= 0")
)
