package todo

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatus    = errors.New("invalid status")
	ErrEmptyDescription = errors.New("description cannot be empty")
)

// ItemError reports a problem with one item of a write_todos request.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("todos[%d]: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
