package telemetrytest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/agentgate/internal/telemetry"
)

func TestRecorder_CopiesAttributes(t *testing.T) {
	rec := &Recorder{}
	attrs := telemetry.Attributes{"k": "v"}
	rec.Emit(context.Background(), "e", attrs)
	attrs["k"] = "changed"

	require.Len(t, rec.Events(), 1)
	assert.Equal(t, "v", rec.Events()[0].Attributes["k"])
	assert.Empty(t, rec.Named("other"))
}

func TestRecorder_IsAnEmitter(t *testing.T) {
	var e telemetry.Emitter = &Recorder{}
	telemetry.Safe(context.Background(), e, telemetry.EventAgentTurn, telemetry.Attributes{"rounds": 1})
	assert.Len(t, e.(*Recorder).Named(telemetry.EventAgentTurn), 1)
}
