package todo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/tool"
)

var writeParams = &tool.Schema{
	Type: tool.TypeObject,
	Properties: map[string]*tool.Schema{
		"todos": {
			Type:        tool.TypeArray,
			Description: "The complete list; it replaces the current one",
			Items: &tool.Schema{
				Type: tool.TypeObject,
				Properties: map[string]*tool.Schema{
					"description": {Type: tool.TypeString},
					"status": {
						Type: tool.TypeString,
						Enum: []string{string(StatusPending), string(StatusInProgress), string(StatusCompleted), string(StatusCancelled)},
					},
				},
				Required: []string{"description", "status"},
			},
		},
	},
	Required: []string{"todos"},
}

// Tools returns read_todos and write_todos sharing store. Both only touch
// the agent's own list, so both are ReadOnly.
func Tools(store *Store) []tool.Tool {
	return []tool.Tool{
		tool.NewBase[ReadRequest]("read_todos",
			"Read the current task list for this session.",
			&tool.Schema{Type: tool.TypeObject},
			risk.ReadOnly,
			func(_ context.Context, tctx tool.Context, _ ReadRequest) (string, error) {
				return format(store.Read(tctx.SessionID)), nil
			},
		),
		tool.NewBase[WriteRequest]("write_todos",
			"Replace the task list for this session. Use it to plan multi-step work and track progress.",
			writeParams,
			risk.ReadOnly,
			func(_ context.Context, tctx tool.Context, req WriteRequest) (string, error) {
				store.Write(tctx.SessionID, req.Todos)
				return fmt.Sprintf("Saved %d todos\n%s", len(req.Todos), format(req.Todos)), nil
			},
		),
	}
}

func format(todos []Todo) string {
	if len(todos) == 0 {
		return "No todos."
	}
	var b strings.Builder
	for i, t := range todos {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s %s", i+1, statusMarks[t.Status], t.Description)
	}
	return b.String()
}
