package tool

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by NotFoundError.
	ErrNotFound = errors.New("tool not found")

	// ErrInvalidArguments is returned when arguments cannot be decoded.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// NotFoundError is returned when a tool name is not registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
