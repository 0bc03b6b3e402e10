package loop

import (
	"context"

	"github.com/Cyclone1070/agentgate/internal/permission"
	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/provider"
	"github.com/Cyclone1070/agentgate/internal/tool"
)

// llmProvider communicates with an LLM.
type llmProvider interface {
	Name() string

	// Generate sends the full history to the LLM and returns its response.
	Generate(ctx context.Context, messages []provider.Message, opts provider.Options, tools []tool.Declaration) (*provider.Response, error)
}

// toolLookup finds registered tools.
type toolLookup interface {
	TryGet(name string) (tool.Tool, bool)

	// Declarations returns all tool schemas for the LLM.
	Declarations() []tool.Declaration
}

// riskClassifier assigns a tool its risk class.
type riskClassifier interface {
	Classify(id risk.Identity) risk.Class
}

// permissionGate decides whether a tool call may run.
// The only error it returns is the context's.
type permissionGate interface {
	Request(ctx context.Context, call provider.ToolCall, class risk.Class, sessionID string) (permission.Verdict, error)
}
