package loop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Cyclone1070/agentgate/internal/permission"
	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/provider"
	"github.com/Cyclone1070/agentgate/internal/session"
	"github.com/Cyclone1070/agentgate/internal/telemetry"
	"github.com/Cyclone1070/agentgate/internal/tool"
	"github.com/Cyclone1070/agentgate/internal/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMaxIterations = 20
	DefaultMaxToolCalls  = 100
)

// Options configure a Loop. Zero values select defaults.
type Options struct {
	MaxIterations int
	MaxToolCalls  int
	WorkspaceRoot string

	// Events, when set, receives workflow events. Sends give up when the
	// turn's context is cancelled.
	Events  chan<- workflow.Event
	Emitter telemetry.Emitter
	Logger  *zap.Logger
}

// Response is the outcome of one Process call.
type Response struct {
	// Content is the content of the final assistant message.
	Content string
	Model   string
	// ToolResults holds every result produced this turn, in execution order.
	ToolResults []tool.Result
	Usage       provider.Usage
	Rounds      int
}

// Loop drives one user turn: model call, tool calls, permission checks and
// execution, repeated until the model stops asking for tools.
type Loop struct {
	provider   llmProvider
	tools      toolLookup
	classifier riskClassifier
	gate       permissionGate
	opts       Options
}

func NewLoop(p llmProvider, tools toolLookup, classifier riskClassifier, gate permissionGate, opts Options) *Loop {
	if p == nil {
		panic("provider is required")
	}
	if tools == nil {
		panic("tools is required")
	}
	if classifier == nil {
		panic("classifier is required")
	}
	if gate == nil {
		panic("permission gate is required")
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.MaxToolCalls <= 0 {
		opts.MaxToolCalls = DefaultMaxToolCalls
	}
	if opts.Emitter == nil {
		opts.Emitter = telemetry.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Loop{
		provider:   p,
		tools:      tools,
		classifier: classifier,
		gate:       gate,
		opts:       opts,
	}
}

// Process runs one turn for userText against conv.
//
// Tool failures never abort the turn; they become failed results the model
// can react to. Process returns an error when the input is missing
// (ErrInvalidInput), the provider fails, a cap is hit (ErrLoopLimitExceeded)
// or ctx is cancelled. In the last two cases the partial Response is
// returned alongside the error.
func (l *Loop) Process(ctx context.Context, userText string, conv *session.Conversation) (resp *Response, err error) {
	if strings.TrimSpace(userText) == "" {
		return nil, fmt.Errorf("%w: message is empty", ErrInvalidInput)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: conversation is nil", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp = &Response{}
	toolCalls := 0
	defer func() {
		l.send(ctx, workflow.DoneEvent{Err: err})
		telemetry.Safe(ctx, l.opts.Emitter, telemetry.EventAgentTurn, telemetry.Attributes{
			"session_id":    conv.SessionID,
			"provider":      l.provider.Name(),
			"rounds":        resp.Rounds,
			"tool_calls":    toolCalls,
			"input_tokens":  resp.Usage.InputTokens,
			"output_tokens": resp.Usage.OutputTokens,
			"success":       err == nil,
		})
	}()

	conv.Append(provider.Message{Role: provider.RoleUser, Content: userText})

	for round := 0; ; round++ {
		if round >= l.opts.MaxIterations {
			return resp, fmt.Errorf("%w: max iterations (%d) reached", ErrLoopLimitExceeded, l.opts.MaxIterations)
		}
		if err := ctx.Err(); err != nil {
			return resp, err
		}

		l.send(ctx, workflow.ThinkingEvent{Round: round + 1})
		l.opts.Logger.Debug("model round", zap.Int("round", round+1), zap.Int("messages", conv.Len()))

		out, err := l.provider.Generate(ctx, conv.History(), conv.Options, l.tools.Declarations())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return resp, ctxErr
			}
			return resp, fmt.Errorf("provider.Generate: %w", err)
		}
		if out == nil {
			return resp, fmt.Errorf("provider.Generate: %w", provider.ErrEmptyResponse)
		}
		if err := ctx.Err(); err != nil {
			return resp, err
		}

		calls := normalizeCalls(out.ToolCalls)
		conv.Append(provider.Message{
			Role:      provider.RoleAssistant,
			Content:   out.Content,
			ToolCalls: calls,
		})
		resp.Rounds++
		resp.Content = out.Content
		resp.Usage = resp.Usage.Add(out.Usage)
		if out.Model != "" {
			resp.Model = out.Model
		}
		if out.Content != "" {
			l.send(ctx, workflow.TextEvent{Text: out.Content})
		}

		if len(calls) == 0 {
			return resp, nil
		}

		for i, call := range calls {
			if toolCalls >= l.opts.MaxToolCalls {
				answerUnrun(conv, calls[i:], "skipped: tool call limit reached")
				return resp, fmt.Errorf("%w: max tool calls (%d) reached", ErrLoopLimitExceeded, l.opts.MaxToolCalls)
			}
			if err := ctx.Err(); err != nil {
				answerUnrun(conv, calls[i:], "cancelled")
				return resp, err
			}

			result, err := l.handleCall(ctx, call, conv.SessionID)
			if err != nil {
				answerUnrun(conv, calls[i:], "cancelled")
				return resp, err
			}
			toolCalls++
			resp.ToolResults = append(resp.ToolResults, result)
			conv.Append(provider.Message{
				Role:       provider.RoleTool,
				Content:    result.LLMContent(),
				ToolCallID: call.ID,
				ToolName:   call.Name,
				IsError:    !result.Success,
			})
		}
	}
}

// handleCall produces the result for one call. The returned error is
// non-nil only when ctx was cancelled; the result is then discarded.
func (l *Loop) handleCall(ctx context.Context, call provider.ToolCall, sessionID string) (tool.Result, error) {
	start := time.Now()
	l.send(ctx, workflow.ToolStartEvent{ToolName: call.Name, CallID: call.ID, Arguments: call.Arguments})

	result, err := l.resolveCall(ctx, call, sessionID)
	if err != nil {
		return tool.Result{}, err
	}

	result.ToolCallID = call.ID
	if result.Duration == 0 {
		result.Duration = time.Since(start)
	}
	if !result.Success {
		l.opts.Logger.Warn("tool call failed",
			zap.String("tool", call.Name),
			zap.String("call_id", call.ID),
			zap.String("error", result.Error),
		)
	}

	l.send(ctx, workflow.ToolEndEvent{ToolName: call.Name, Result: result})
	telemetry.Safe(ctx, l.opts.Emitter, telemetry.EventToolExecution, telemetry.Attributes{
		"tool":        call.Name,
		"session_id":  sessionID,
		"success":     result.Success,
		"duration_ms": result.Duration.Milliseconds(),
	})
	return result, nil
}

func (l *Loop) resolveCall(ctx context.Context, call provider.ToolCall, sessionID string) (tool.Result, error) {
	t, ok := l.tools.TryGet(call.Name)
	if !ok {
		return tool.Failed((&tool.NotFoundError{Name: call.Name}).Error()), nil
	}

	tctx := tool.Context{
		SessionID:     sessionID,
		ToolCallID:    call.ID,
		WorkspaceRoot: l.opts.WorkspaceRoot,
	}

	if v := validate(ctx, t, call, tctx); !v.Valid {
		return tool.Failed(fmt.Sprintf("invalid arguments for %s: %s", call.Name, v.Error)), nil
	}

	class, err := classify(l.classifier, t)
	if err != nil {
		l.opts.Logger.Error("risk classification failed",
			zap.String("tool", call.Name),
			zap.String("call_id", call.ID),
			zap.Error(err),
		)
		l.send(ctx, workflow.PermissionEvent{
			ToolName: call.Name,
			CallID:   call.ID,
			Decision: permission.Deny,
			Source:   permission.SourceFault,
		})
		return denied(call.Name), nil
	}

	verdict, err := l.gate.Request(ctx, call, class, sessionID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return tool.Result{}, ctxErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return tool.Result{}, err
		}
		verdict = permission.Verdict{Decision: permission.Deny, Source: permission.SourceFault, Err: err}
	}
	l.send(ctx, workflow.PermissionEvent{
		ToolName: call.Name,
		CallID:   call.ID,
		Decision: verdict.Decision,
		Source:   verdict.Source,
		Threat:   verdict.Inspection.Level,
	})
	if !verdict.Allowed() {
		return denied(call.Name), nil
	}

	result, err := execute(ctx, t, call, tctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return tool.Result{}, ctxErr
	}
	if err != nil {
		return tool.Failed(err.Error()), nil
	}
	return result, nil
}

func denied(name string) tool.Result {
	return tool.Failed(fmt.Sprintf("%v: %s was not allowed to run", permission.ErrPermissionDenied, name))
}

// classify treats a panicking classifier as a fault; the call is then denied.
func classify(c riskClassifier, t tool.Tool) (class risk.Class, err error) {
	defer func() {
		if r := recover(); r != nil {
			class = risk.Critical
			err = fmt.Errorf("%w: classifier panicked: %v", permission.ErrInternal, r)
		}
	}()
	return c.Classify(t), nil
}

func validate(ctx context.Context, t tool.Tool, call provider.ToolCall, tctx tool.Context) (v tool.Validation) {
	defer func() {
		if r := recover(); r != nil {
			v = tool.Invalid(fmt.Sprintf("validator panicked: %v", r))
		}
	}()
	return t.Validate(ctx, call.Arguments, tctx)
}

func execute(ctx context.Context, t tool.Tool, call provider.ToolCall, tctx tool.Context) (res tool.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = tool.Result{}
			err = fmt.Errorf("tool %s panicked: %v", call.Name, r)
		}
	}()
	return t.Execute(ctx, call.Arguments, tctx)
}

// answerUnrun appends a failed tool message for each call that will not run,
// so every tool call in the transcript has an answer.
func answerUnrun(conv *session.Conversation, calls []provider.ToolCall, reason string) {
	for _, c := range calls {
		conv.Append(provider.Message{
			Role:       provider.RoleTool,
			Content:    "Error: " + reason,
			ToolCallID: c.ID,
			ToolName:   c.Name,
			IsError:    true,
		})
	}
}

// normalizeCalls gives every call a non-empty id unique within the response.
func normalizeCalls(calls []provider.ToolCall) []provider.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]provider.ToolCall, len(calls))
	seen := make(map[string]bool, len(calls))
	for i, c := range calls {
		if c.ID == "" || seen[c.ID] {
			c.ID = "call_" + uuid.NewString()
		}
		seen[c.ID] = true
		out[i] = c
	}
	return out
}

func (l *Loop) send(ctx context.Context, ev workflow.Event) {
	if l.opts.Events == nil {
		return
	}
	select {
	case l.opts.Events <- ev:
	case <-ctx.Done():
	}
}
