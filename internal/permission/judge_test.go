package permission

import (
	"testing"

	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/stretchr/testify/assert"
)

var (
	allClasses  = []risk.Class{risk.ReadOnly, risk.ReadWrite, risk.Destructive, risk.Critical}
	safe        = NewInspection(nil, "")
	inspections = []Inspection{
		safe,
		NewInspection([]Threat{{Level: LevelLow}}, ""),
		NewInspection([]Threat{{Level: LevelCritical}}, ""),
	}
)

func TestDecide_DenyAndAutoAndAsk(t *testing.T) {
	for _, c := range allClasses {
		for _, in := range inspections {
			for _, autoRW := range []bool{false, true} {
				assert.Equal(t, Deny, Decide(c, in, ModeDeny, autoRW))
				assert.Equal(t, Allow, Decide(c, in, ModeAuto, autoRW))
				assert.Equal(t, Ask, Decide(c, in, ModeAsk, autoRW))
			}
		}
	}
}

func TestDecide_SmartApprove(t *testing.T) {
	unsafe := NewInspection([]Threat{{Level: LevelLow}}, "")

	tests := []struct {
		name   string
		class  risk.Class
		in     Inspection
		autoRW bool
		want   Decision
	}{
		{"read only safe", risk.ReadOnly, safe, false, Allow},
		{"read only unsafe", risk.ReadOnly, unsafe, true, Ask},
		{"read write without auto", risk.ReadWrite, safe, false, Ask},
		{"read write with auto", risk.ReadWrite, safe, true, Allow},
		{"read write unsafe with auto", risk.ReadWrite, unsafe, true, Ask},
		{"destructive", risk.Destructive, safe, true, Ask},
		{"critical", risk.Critical, safe, true, Ask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.class, tt.in, ModeSmartApprove, tt.autoRW))
		})
	}
}

func TestDecide_UnknownModeDenies(t *testing.T) {
	assert.Equal(t, Deny, Decide(risk.ReadOnly, safe, Mode("yolo"), true))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Smart-Approve")
	assert.NoError(t, err)
	assert.Equal(t, ModeSmartApprove, m)

	_, err = ParseMode("sometimes")
	assert.Error(t, err)

	s, err := ParseScope("ARGUMENTS")
	assert.NoError(t, err)
	assert.Equal(t, ScopeArguments, s)
	_, err = ParseScope("global")
	assert.Error(t, err)
}
