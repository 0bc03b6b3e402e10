package permission

import "errors"

var (
	// ErrPermissionDenied is reported in failed tool results when a call is denied.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInternal wraps faults inside the permission subsystem. The call is denied.
	ErrInternal = errors.New("permission check failed")

	// ErrInvalidDecision is returned when storing a non-terminal decision.
	ErrInvalidDecision = errors.New("only allow or deny can be remembered")
)
