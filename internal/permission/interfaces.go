package permission

import (
	"context"

	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/provider"
)

// Prompter asks a human to decide a call the policy could not settle.
// It blocks until the human answers or ctx is cancelled. Returning Ask is
// treated as Deny.
type Prompter interface {
	Prompt(ctx context.Context, call provider.ToolCall, class risk.Class, in Inspection) (Decision, bool, error)
}

// Store persists remembered decisions. Implementations must be safe for
// concurrent use by different sessions.
type Store interface {
	Save(sessionID, key string, d Decision) error
	Get(sessionID, key string) (Decision, bool)
	GetAll(sessionID string) map[string]Decision
	Clear(sessionID string)
	Revoke(sessionID, key string)
}

// inspector lets tests substitute a faulty inspector.
type inspector interface {
	Inspect(call provider.ToolCall, recent []string) Inspection
}
