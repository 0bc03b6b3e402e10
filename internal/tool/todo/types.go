// Package todo provides the agent's per-session task list: the read_todos
// and write_todos tools and their in-memory store.
package todo

import (
	"errors"

	"github.com/Cyclone1070/agentgate/internal/tool"
)

// Status is the state of a todo item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var statusMarks = map[Status]string{
	StatusPending:    "[ ]",
	StatusInProgress: "[~]",
	StatusCompleted:  "[x]",
	StatusCancelled:  "[-]",
}

// Todo is a single task item.
type Todo struct {
	Description string `json:"description"`
	Status      Status `json:"status"`
}

// WriteRequest replaces the session's whole list. An empty list clears it.
type WriteRequest struct {
	Todos []Todo `json:"todos"`
}

func (r *WriteRequest) Validate(_ tool.Context) error {
	var errs []error
	for i, t := range r.Todos {
		if _, ok := statusMarks[t.Status]; !ok {
			errs = append(errs, &ItemError{Index: i, Err: ErrInvalidStatus})
		}
		if t.Description == "" {
			errs = append(errs, &ItemError{Index: i, Err: ErrEmptyDescription})
		}
	}
	return errors.Join(errs...)
}

// ReadRequest takes no arguments.
type ReadRequest struct{}
