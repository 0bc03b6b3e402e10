package workflow

import (
	"encoding/json"

	"github.com/Cyclone1070/agentgate/internal/permission"
	"github.com/Cyclone1070/agentgate/internal/tool"
)

// Event is the interface for all workflow events.
// UI handles events via type switch.
type Event interface {
	isEvent()
}

// ThinkingEvent is emitted before each model call.
type ThinkingEvent struct {
	Round int
}

func (ThinkingEvent) isEvent() {}

// TextEvent is emitted when the model produces text output.
type TextEvent struct {
	Text string
}

func (TextEvent) isEvent() {}

// ToolStartEvent is emitted when the loop starts handling a tool call.
type ToolStartEvent struct {
	ToolName  string
	CallID    string
	Arguments json.RawMessage
}

func (ToolStartEvent) isEvent() {}

// PermissionEvent is emitted once the permission gate has answered.
type PermissionEvent struct {
	ToolName string
	CallID   string
	Decision permission.Decision
	Source   permission.Source
	Threat   permission.Level
}

func (PermissionEvent) isEvent() {}

// ToolEndEvent is emitted with the result of every tool call, including
// calls that were rejected before running.
type ToolEndEvent struct {
	ToolName string
	Result   tool.Result
}

func (ToolEndEvent) isEvent() {}

// DoneEvent is emitted when a turn ends. Err is nil on success.
type DoneEvent struct {
	Err error
}

func (DoneEvent) isEvent() {}
