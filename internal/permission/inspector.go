package permission

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Cyclone1070/agentgate/internal/provider"
)

const (
	repeatMediumAt = 3
	repeatHighAt   = 5
)

// Inspector scans tool call arguments for dangerous patterns.
// It holds no state; the same inputs always produce the same Inspection.
type Inspector struct {
	ruleSets []ruleSet
}

// NewInspector returns an inspector with the built-in detectors.
func NewInspector() *Inspector {
	return &Inspector{
		ruleSets: []ruleSet{
			maliciousCommands,
			networkExfiltration,
			privilegeEscalation,
			codeExecution,
			systemModification,
		},
	}
}

// Inspect runs every detector over call. recent holds the fingerprints of
// the session's previous calls, oldest first, and feeds repetition detection.
func (i *Inspector) Inspect(call provider.ToolCall, recent []string) Inspection {
	values, note := argumentStrings(call.Arguments)

	var threats []Threat
	for _, rs := range i.ruleSets {
		threats = append(threats, rs.detect(values)...)
	}
	threats = append(threats, detectSensitiveFiles(values)...)
	if t, ok := detectRepetition(Fingerprint(call), recent); ok {
		threats = append(threats, t)
	}

	sort.SliceStable(threats, func(a, b int) bool {
		return threats[a].Level > threats[b].Level
	})
	return NewInspection(threats, note)
}

func detectRepetition(fp string, recent []string) (Threat, bool) {
	n := 1
	for _, r := range recent {
		if r == fp {
			n++
		}
	}
	var lvl Level
	switch {
	case n >= repeatHighAt:
		lvl = LevelHigh
	case n >= repeatMediumAt:
		lvl = LevelMedium
	default:
		return Threat{}, false
	}
	return Threat{
		Category:       CategoryRepetition,
		Level:          lvl,
		Description:    fmt.Sprintf("identical call repeated %d times", n),
		Recommendation: "the agent may be stuck in a loop",
	}, true
}

// argumentStrings flattens every string value in the
// arguments. Invalid JSON is scanned as one raw string.
func argumentStrings(raw json.RawMessage) ([]string, string) {
	if len(raw) == 0 {
		return nil, ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return []string{string(raw)}, "arguments are not valid JSON; scanned as raw text"
	}
	var out []string
	collectStrings(v, &out)
	return out, ""
}

func collectStrings(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		*out = append(*out, t)
	case []any:
		for _, e := range t {
			collectStrings(e, out)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectStrings(t[k], out)
		}
	}
}
