package tool

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Cyclone1070/agentgate/internal/permission/risk"
)

// Context carries per-call information a tool may need beyond its arguments.
type Context struct {
	SessionID     string
	ToolCallID    string
	WorkspaceRoot string
}

// Tool is a named capability the model can invoke.
// Implementations must be safe for concurrent use across sessions.
type Tool interface {
	Name() string
	Description() string
	Declaration() Declaration

	// Risk is the tool's declared inherent risk.
	Risk() risk.Class

	// Validate checks args without side effects.
	Validate(ctx context.Context, args json.RawMessage, tctx Context) Validation

	// Execute runs the tool. Failures of the tool itself are reported in the
	// Result; a non-nil error is reserved for infrastructure problems such as
	// cancellation.
	Execute(ctx context.Context, args json.RawMessage, tctx Context) (Result, error)
}

// Result is the outcome of one tool call. Exactly one of Output and Error is
// meaningful, selected by Success.
type Result struct {
	ToolCallID string         `json:"tool_call_id"`
	Success    bool           `json:"success"`
	Output     string         `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	Duration   time.Duration  `json:"duration"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(output string) Result {
	return Result{Success: true, Output: output}
}

// Failed builds a failed result.
func Failed(msg string) Result {
	if msg == "" {
		msg = "unknown error"
	}
	return Result{Success: false, Error: msg}
}

// LLMContent is the text sent back to the model for this result.
func (r Result) LLMContent() string {
	if r.Success {
		if r.Output == "" {
			return "(no output)"
		}
		return r.Output
	}
	return "Error: " + r.Error
}

// Validation is the outcome of Tool.Validate.
type Validation struct {
	Valid  bool
	Error  string
	Errors []string
}

// Valid is the Validation for acceptable arguments.
func Valid() Validation {
	return Validation{Valid: true}
}

// Invalid builds a failed Validation from one or more problems.
func Invalid(problems ...string) Validation {
	if len(problems) == 0 {
		problems = []string{"invalid arguments"}
	}
	return Validation{
		Valid:  false,
		Error:  strings.Join(problems, "; "),
		Errors: problems,
	}
}
