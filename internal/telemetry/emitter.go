package telemetry

import "context"

// Event names emitted by the agent.
const (
	EventPermissionDecision = "permission.decision"
	EventToolExecution      = "tool.execution"
	EventAgentTurn          = "agent.turn"
)

// Attributes are the key/value pairs attached to an event. Values should be
// strings, bools, ints, int64s or float64s; anything else is stringified.
type Attributes map[string]any

// Emitter records named events. Implementations must not block the caller
// for long and must never fail the operation that emits.
type Emitter interface {
	Emit(ctx context.Context, name string, attrs Attributes)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, string, Attributes) {}

// Multi fans an event out to several emitters. A panicking emitter is
// isolated from the others and from the caller.
func Multi(emitters ...Emitter) Emitter {
	var out multi
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

type multi []Emitter

func (m multi) Emit(ctx context.Context, name string, attrs Attributes) {
	for _, e := range m {
		Safe(ctx, e, name, attrs)
	}
}

// Safe emits on e, swallowing panics. A nil emitter is a no-op.
func Safe(ctx context.Context, e Emitter, name string, attrs Attributes) {
	if e == nil {
		return
	}
	defer func() { _ = recover() }()
	e.Emit(ctx, name, attrs)
}
