// Package telemetrytest provides an in-memory telemetry emitter for tests.
package telemetrytest

import (
	"context"
	"maps"
	"sync"

	"github.com/Cyclone1070/agentgate/internal/telemetry"
)

// Event is one event captured by a Recorder.
type Event struct {
	Name       string
	Attributes telemetry.Attributes
}

// Recorder keeps emitted events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, name string, attrs telemetry.Attributes) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: name, Attributes: maps.Clone(attrs)})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
