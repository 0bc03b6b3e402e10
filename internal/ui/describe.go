package ui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Cyclone1070/agentgate/internal/permission"
	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/provider"
)

const maxArgPreview = 200

// Describe generates a user-friendly one-line description of a tool call.
func Describe(name string, args json.RawMessage) string {
	var m map[string]any
	_ = json.Unmarshal(args, &m)

	switch name {
	case "read_file", "write_file":
		if path, ok := m["path"].(string); ok {
			return fmt.Sprintf("%s %s", name, path)
		}
	case "list_directory":
		path, _ := m["path"].(string)
		if path == "" {
			path = "."
		}
		return fmt.Sprintf("%s %s", name, path)
	case "shell":
		if cmd, ok := m["command"].(string); ok {
			return fmt.Sprintf("shell '%s'", truncate(cmd, maxArgPreview))
		}
	}
	if len(args) == 0 {
		return name
	}
	return fmt.Sprintf("%s %s", name, truncate(string(args), maxArgPreview))
}

// permissionBody is the text shown when asking about a call.
func permissionBody(call provider.ToolCall, class risk.Class, in permission.Inspection) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Allow tool call?"))
	b.WriteString("\n\n")
	b.WriteString(Describe(call.Name, call.Arguments))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render(fmt.Sprintf("risk: %s  threat: %s", class, in.Level)))
	for _, t := range in.Threats {
		b.WriteString("\n")
		b.WriteString(threatStyle.Render(fmt.Sprintf("! [%s] %s", t.Level, t.Description)))
		if t.Recommendation != "" {
			b.WriteString(hintStyle.Render(" (" + t.Recommendation + ")"))
		}
	}
	if in.Note != "" {
		b.WriteString("\n")
		b.WriteString(hintStyle.Render(in.Note))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
