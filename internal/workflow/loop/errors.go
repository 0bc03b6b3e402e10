package loop

import "errors"

var (
	// ErrInvalidInput is returned before any model call when the message or
	// conversation is missing.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLoopLimitExceeded is returned with a partial response when a turn
	// hits the round or tool-call cap.
	ErrLoopLimitExceeded = errors.New("loop limit exceeded")
)
