package permission

import "fmt"

// Level is the severity of a detected threat. Levels are totally ordered.
type Level int

const (
	LevelNone Level = iota
	LevelLow
	LevelMedium
	LevelHigh
	LevelCritical
)

var levelNames = [...]string{"none", "low", "medium", "high", "critical"}

func (l Level) String() string {
	if l < LevelNone || l > LevelCritical {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// Category groups threats by the kind of harm they indicate.
type Category string

const (
	CategoryMaliciousCommand    Category = "malicious_command"
	CategorySensitiveFile       Category = "sensitive_file"
	CategoryNetworkExfiltration Category = "network_exfiltration"
	CategoryPrivilegeEscalation Category = "privilege_escalation"
	CategoryCodeExecution       Category = "code_execution"
	CategoryRepetition          Category = "repetition"
	CategorySystemModification  Category = "system_modification"
)

// Threat is one dangerous pattern found in a tool call's arguments.
type Threat struct {
	Category       Category `json:"category"`
	Level          Level    `json:"level"`
	Description    string   `json:"description"`
	Pattern        string   `json:"pattern,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// Inspection is the scored result of inspecting one tool call.
// Build it with NewInspection so Level and Safe stay consistent with Threats.
type Inspection struct {
	Safe    bool     `json:"safe"`
	Level   Level    `json:"level"`
	Threats []Threat `json:"threats,omitempty"`
	Note    string   `json:"note,omitempty"`
}

// NewInspection derives the aggregate level (the maximum threat level, or
// LevelNone without threats) and the Safe flag from threats.
func NewInspection(threats []Threat, note string) Inspection {
	agg := LevelNone
	for _, t := range threats {
		if t.Level > agg {
			agg = t.Level
		}
	}
	return Inspection{
		Safe:    agg == LevelNone,
		Level:   agg,
		Threats: threats,
		Note:    note,
	}
}
