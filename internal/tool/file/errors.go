package file

import (
	"errors"
	"fmt"
)

// -- Sentinels --

var (
	ErrFileMissing    = errors.New("file or path does not exist")
	ErrBinaryFile     = errors.New("file is binary")
	ErrFileTooLarge   = errors.New("file too large")
	ErrIsDirectory    = errors.New("path is a directory")
	ErrNotADirectory  = errors.New("path is not a directory")
	ErrPathRequired   = errors.New("path is required")
	ErrInvalidOffset  = errors.New("offset must be >= 0")
	ErrInvalidLimit   = errors.New("limit must be >= 0")
	ErrInvalidDepth   = errors.New("max_depth must be >= -1")
	ErrLimitExceeded  = errors.New("limit exceeds maximum")
	ErrContentTooLong = errors.New("content exceeds maximum file size")
	ErrQueryRequired  = errors.New("query is required")
	ErrInvalidPattern = errors.New("invalid regular expression")
)

// -- Error Types --

// TooLargeError is returned when a file exceeds the configured size limit.
type TooLargeError struct {
	Path  string
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("%s: %s (size %d, limit %d)", ErrFileTooLarge, e.Path, e.Size, e.Limit)
}
func (e *TooLargeError) Unwrap() error { return ErrFileTooLarge }

// WriteError is returned when writing a file fails.
type WriteError struct {
	Path  string
	Cause error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Cause)
}
func (e *WriteError) Unwrap() error { return e.Cause }
