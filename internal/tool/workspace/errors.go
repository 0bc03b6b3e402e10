package workspace

import (
	"errors"
	"fmt"
)

// -- Error Types --

// RootError is returned when the workspace root is invalid.
type RootError struct {
	Root  string
	Cause error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("invalid workspace root %s: %v", e.Root, e.Cause)
}
func (e *RootError) Unwrap() error { return e.Cause }

// -- Sentinels --

var (
	ErrOutsideWorkspace = errors.New("path is outside workspace root")
	ErrRootNotSet       = errors.New("workspace root not set")
	ErrNotADirectory    = errors.New("not a directory")
)
