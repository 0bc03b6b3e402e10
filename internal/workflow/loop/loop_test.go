package loop

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Cyclone1070/agentgate/internal/permission"
	"github.com/Cyclone1070/agentgate/internal/permission/risk"
	"github.com/Cyclone1070/agentgate/internal/provider"
	"github.com/Cyclone1070/agentgate/internal/session"
	"github.com/Cyclone1070/agentgate/internal/telemetry"
	"github.com/Cyclone1070/agentgate/internal/telemetry/telemetrytest"
	"github.com/Cyclone1070/agentgate/internal/tool"
	"github.com/Cyclone1070/agentgate/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	generateFunc func(ctx context.Context, messages []provider.Message, opts provider.Options, tools []tool.Declaration) (*provider.Response, error)
	calls        int
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Generate(ctx context.Context, messages []provider.Message, opts provider.Options, tools []tool.Declaration) (*provider.Response, error) {
	m.calls++
	return m.generateFunc(ctx, messages, opts, tools)
}

// scripted returns the responses in order and repeats the last one.
func scripted(responses ...*provider.Response) *mockProvider {
	i := 0
	return &mockProvider{generateFunc: func(context.Context, []provider.Message, provider.Options, []tool.Declaration) (*provider.Response, error) {
		r := responses[min(i, len(responses)-1)]
		i++
		return r, nil
	}}
}

type mockTool struct {
	name         string
	risk         risk.Class
	validateFunc func(args json.RawMessage) tool.Validation
	executeFunc  func(ctx context.Context, args json.RawMessage) (tool.Result, error)
	executed     int
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return "mock tool" }
func (m *mockTool) Risk() risk.Class    { return m.risk }
func (m *mockTool) Declaration() tool.Declaration {
	return tool.Declaration{Name: m.name, Description: "mock tool"}
}

func (m *mockTool) Validate(_ context.Context, args json.RawMessage, _ tool.Context) tool.Validation {
	if m.validateFunc != nil {
		return m.validateFunc(args)
	}
	return tool.Valid()
}

func (m *mockTool) Execute(ctx context.Context, args json.RawMessage, _ tool.Context) (tool.Result, error) {
	m.executed++
	if m.executeFunc != nil {
		return m.executeFunc(ctx, args)
	}
	return tool.Succeeded("ok"), nil
}

type mockGate struct {
	requestFunc func(ctx context.Context, call provider.ToolCall, class risk.Class, sessionID string) (permission.Verdict, error)
	requests    []provider.ToolCall
	classes     []risk.Class
}

func (m *mockGate) Request(ctx context.Context, call provider.ToolCall, class risk.Class, sessionID string) (permission.Verdict, error) {
	m.requests = append(m.requests, call)
	m.classes = append(m.classes, class)
	if m.requestFunc != nil {
		return m.requestFunc(ctx, call, class, sessionID)
	}
	return permission.Verdict{Decision: permission.Allow, Source: permission.SourceJudge}, nil
}

func newTestLoop(p llmProvider, tools ...tool.Tool) (*Loop, *mockGate) {
	gate := &mockGate{}
	return NewLoop(p, tool.NewRegistry(tools...), risk.NewClassifier(nil), gate, Options{}), gate
}

func toolCall(id, name, args string) provider.ToolCall {
	return provider.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func TestProcess_TextOnly(t *testing.T) {
	p := scripted(&provider.Response{Content: "Test response", Model: "m1", Usage: provider.Usage{InputTokens: 3, OutputTokens: 2}})
	l, _ := newTestLoop(p)
	conv := session.NewConversation("s", provider.Options{})

	resp, err := l.Process(context.Background(), "Hello", conv)
	require.NoError(t, err)

	assert.Equal(t, "Test response", resp.Content)
	assert.Empty(t, resp.ToolResults)
	assert.Equal(t, 1, resp.Rounds)
	assert.Equal(t, "m1", resp.Model)
	assert.Equal(t, 5, resp.Usage.TotalTokens())

	require.Len(t, conv.Messages, 2)
	assert.Equal(t, provider.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "Hello", conv.Messages[0].Content)
	assert.Equal(t, provider.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "Test response", conv.Messages[1].Content)
}

func TestProcess_SingleToolCall(t *testing.T) {
	ft := &mockTool{name: "file-tool", risk: risk.ReadOnly, executeFunc: func(_ context.Context, args json.RawMessage) (tool.Result, error) {
		assert.JSONEq(t, `{"path":"/test/file.txt"}`, string(args))
		return tool.Succeeded("File content"), nil
	}}
	var seen []provider.Message
	round := 0
	p := &mockProvider{generateFunc: func(_ context.Context, msgs []provider.Message, _ provider.Options, decls []tool.Declaration) (*provider.Response, error) {
		round++
		require.Len(t, decls, 1)
		if round == 1 {
			return &provider.Response{ToolCalls: []provider.ToolCall{
				toolCall("tool-call-1", "file-tool", `{"path":"/test/file.txt"}`),
			}}, nil
		}
		seen = msgs
		return &provider.Response{Content: "Here is the file content: File content"}, nil
	}}
	l, gate := newTestLoop(p, ft)
	conv := session.NewConversation("s", provider.Options{})

	resp, err := l.Process(context.Background(), "Read the file", conv)
	require.NoError(t, err)

	assert.Equal(t, "Here is the file content: File content", resp.Content)
	require.Len(t, resp.ToolResults, 1)
	assert.Equal(t, "tool-call-1", resp.ToolResults[0].ToolCallID)
	assert.True(t, resp.ToolResults[0].Success)
	assert.Equal(t, "File content", resp.ToolResults[0].Output)
	assert.Equal(t, 2, resp.Rounds)

	require.Len(t, gate.classes, 1)
	assert.Equal(t, risk.ReadOnly, gate.classes[0])

	// The second model call saw the tool output.
	require.Len(t, seen, 3)
	assert.Equal(t, provider.RoleTool, seen[2].Role)
	assert.Equal(t, "tool-call-1", seen[2].ToolCallID)
	assert.Equal(t, "File content", seen[2].Content)
	assert.Len(t, conv.Messages, 4)
}

func TestProcess_ToolNotFound(t *testing.T) {
	p := scripted(
		&provider.Response{ToolCalls: []provider.ToolCall{toolCall("c1", "non-existent-tool", `{}`)}},
		&provider.Response{Content: "Sorry, that tool does not exist"},
	)
	l, gate := newTestLoop(p)

	resp, err := l.Process(context.Background(), "do it", session.NewConversation("s", provider.Options{}))
	require.NoError(t, err)

	require.Len(t, resp.ToolResults, 1)
	assert.False(t, resp.ToolResults[0].Success)
	assert.Contains(t, resp.ToolResults[0].Error, "not found")
	assert.Contains(t, resp.ToolResults[0].Error, "non-existent-tool")
	assert.Empty(t, gate.requests, "no permission check for unknown tools")
	assert.Equal(t, "Sorry, that tool does not exist", resp.Content)
}

func TestProcess_InvalidInput(t *testing.T) {
	p := scripted(&provider.Response{Content: "x"})
	l, _ := newTestLoop(p)

	_, err := l.Process(context.Background(), "", session.NewConversation("s", provider.Options{}))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = l.Process(context.Background(), "   ", session.NewConversation("s", provider.Options{}))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = l.Process(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, p.calls)
}

func TestProcess_PermissionDenied(t *testing.T) {
	sh := &mockTool{name: "shell", risk: risk.Critical}
	p := scripted(
		&provider.Response{ToolCalls: []provider.ToolCall{toolCall("c1", "shell", `{"command":"ls"}`)}},
		&provider.Response{Content: "ok, I won't"},
	)
	l, gate := newTestLoop(p, sh)
	gate.requestFunc = func(context.Context, provider.ToolCall, risk.Class, string) (permission.Verdict, error) {
		return permission.Verdict{Decision: permission.Deny}, nil
	}

	resp, err := l.Process(context.Background(), "run ls", session.NewConversation("s", provider.Options{}))
	require.NoError(t, err)
	require.Len(t, resp.ToolResults, 1)
	assert.False(t, resp.ToolResults[0].Success)
	assert.Contains(t, resp.ToolResults[0].Error, "permission denied")
	assert.Zero(t, sh.executed)
}

func TestProcess_GateFaultDenies(t *testing.T) {
	sh := &mockTool{name: "shell", risk: risk.Critical}
	p := scripted(
		&provider.Response{ToolCalls: []provider.ToolCall{toolCall("c1", "shell", `{}`)}},
		&provider.Response{Content: "done"},
	)
	l, gate := newTestLoop(p, sh)
	gate.requestFunc = func(context.Context, provider.ToolCall, risk.Class, string) (permission.Verdict, error) {
		return permission.Verdict{Decision: permission.Allow}, errors.New("store offline")
	}

	resp, err := l.Process(context.Background(), "go", session.NewConversation("s", provider.Options{}))
	require.NoError(t, err)
	assert.False(t, resp.ToolResults[0].Success)
	assert.Zero(t, sh.executed)
}

// faultyRiskTool panics when asked for its declared risk.
type faultyRiskTool struct {
	*mockTool
}

func (faultyRiskTool) Risk() risk.Class { panic("risk lookup exploded") }

func TestProcess_ClassifierFaultDenies(t *testing.T) {
	bad := faultyRiskTool{&mockTool{name: "shell"}}
	p := scripted(
		&provider.Response{ToolCalls: []provider.ToolCall{toolCall("c1", "shell", `{"command":"ls"}`)}},
		&provider.Response{Content: "could not run it"},
	)
	events := make(chan workflow.Event, 16)
	gate := &mockGate{}
	l := NewLoop(p, tool.NewRegistry(bad), risk.NewClassifier(nil), gate, Options{Events: events})

	var resp *Response
	var err error
	require.NotPanics(t, func() {
		resp, err = l.Process(context.Background(), "run ls", session.NewConversation("s", provider.Options{}))
	})
	require.NoError(t, err)
	close(events)

	assert.Equal(t, "could not run it", resp.Content)
	require.Len(t, resp.ToolResults, 1)
	assert.False(t, resp.ToolResults[0].Success)
	assert.Contains(t, resp.ToolResults[0].Error, permission.ErrPermissionDenied.Error())
	assert.Zero(t, bad.executed)
	assert.Empty(t, gate.requests, "gate is not consulted without a risk class")

	var perms []workflow.PermissionEvent
	for ev := range events {
		if pe, ok := ev.(workflow.PermissionEvent); ok {
			perms = append(perms, pe)
		}
	}
	require.Len(t, perms, 1)
	assert.Equal(t, permission.Deny, perms[0].Decision)
	assert.Equal(t, permission.SourceFault, perms[0].Source)
}

func TestProcess_ValidationBeforePermission(t *testing.T) {
	ft := &mockTool{name: "file-tool", risk: risk.ReadOnly, validateFunc: func(json.RawMessage) tool.Validation {
		return tool.Invalid("path is required")
	}}
	p := scripted(
		&provider.Response{ToolCalls: []provider.ToolCall{toolCall("c1", "file-tool", `{}`)}},
		&provider.Response{Content: "fixed"},
	)
	l, gate := newTestLoop(p, ft)

	resp, err := l.Process(context.Background(), "read", session.NewConversation("s", provider.Options{}))
	require.NoError(t, err)
	assert.False(t, resp.ToolResults[0].Success)
	assert.Contains(t, resp.ToolResults[0].Error, "path is required")
	assert.Empty(t, gate.requests)
	assert.Zero(t, ft.executed)
}

func TestProcess_ToolFaultsAreContained(t *testing.T) {
	panicky := &mockTool{name: "panicky", risk: risk.ReadOnly, executeFunc: func(context.Context, json.RawMessage) (tool.Result, error) {
		panic("nil map write")
	}}
	erroring := &mockTool{name: "erroring", risk: risk.ReadOnly, executeFunc: func(context.Context, json.RawMessage) (tool.Result, error) {
		return tool.Result{}, errors.New("io failure")
	}}
	badValidator := &mockTool{name: "bad-validator", risk: risk.ReadOnly, validateFunc: func(json.RawMessage) tool.Validation {
		panic("validator bug")
	}}
	p := scripted(
		&provider.Response{ToolCalls: []provider.ToolCall{
			toolCall("a", "panicky", `{}`),
			toolCall("b", "erroring", `{}`),
			toolCall("c", "bad-validator", `{}`),
		}},
		&provider.Response{Content: "recovered"},
	)
	l, _ := newTestLoop(p, panicky, erroring, badValidator)
	conv := session.NewConversation("s", provider.Options{})

	resp, err := l.Process(context.Background(), "go", conv)
	require.NoError(t, err)
	require.Len(t, resp.ToolResults, 3)
	assert.Contains(t, resp.ToolResults[0].Error, "panicked")
	assert.Equal(t, "io failure", resp.ToolResults[1].Error)
	assert.Contains(t, resp.ToolResults[2].Error, "validator panicked")
	assert.Equal(t, "recovered", resp.Content)

	// Tool messages follow the model's order.
	var ids []string
	for _, m := range conv.Messages {
		if m.Role == provider.RoleTool {
			ids = append(ids, m.ToolCallID)
			assert.True(t, m.IsError)
		}
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestProcess_ProviderErrorIsFatal(t *testing.T) {
	perr := &provider.ProviderError{Provider: "mock", StatusCode: 401, Code: provider.ErrorCodeAuth, Message: "bad key"}
	p := &mockProvider{generateFunc: func(context.Context, []provider.Message, provider.Options, []tool.Declaration) (*provider.Response, error) {
		return nil, perr
	}}
	l, _ := newTestLoop(p)
	conv := session.NewConversation("s", provider.Options{})

	_, err := l.Process(context.Background(), "hi", conv)
	require.Error(t, err)
	var got *provider.ProviderError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 401, got.StatusCode)
	assert.Len(t, conv.Messages, 1, "only the user message")
}

func TestProcess_NilResponse(t *testing.T) {
	p := &mockProvider{generateFunc: func(context.Context, []provider.Message, provider.Options, []tool.Declaration) (*provider.Response, error) {
		return nil, nil
	}}
	l, _ := newTestLoop(p)
	_, err := l.Process(context.Background(), "hi", session.NewConversation("s", provider.Options{}))
	assert.ErrorIs(t, err, provider.ErrEmptyResponse)
}

func TestProcess_MaxIterations(t *testing.T) {
	p := scripted(&provider.Response{Content: "again", ToolCalls: []provider.ToolCall{toolCall("", "echo", `{}`)}})
	gate := &mockGate{}
	l := NewLoop(p, tool.NewRegistry(&mockTool{name: "echo"}), risk.NewClassifier(nil), gate, Options{MaxIterations: 3})

	resp, err := l.Process(context.Background(), "go", session.NewConversation("s", provider.Options{}))
	require.ErrorIs(t, err, ErrLoopLimitExceeded)
	assert.Contains(t, err.Error(), "max iterations (3) reached")
	require.NotNil(t, resp)
	assert.Equal(t, 3, resp.Rounds)
	assert.Len(t, resp.ToolResults, 3)
	assert.Equal(t, 3, p.calls)
}

func TestProcess_MaxToolCalls(t *testing.T) {
	p := scripted(&provider.Response{ToolCalls: []provider.ToolCall{
		toolCall("a", "echo", `{}`), toolCall("b", "echo", `{}`), toolCall("c", "echo", `{}`),
	}})
	l := NewLoop(p, tool.NewRegistry(&mockTool{name: "echo"}), risk.NewClassifier(nil), &mockGate{}, Options{MaxToolCalls: 2})
	conv := session.NewConversation("s", provider.Options{})

	resp, err := l.Process(context.Background(), "go", conv)
	require.ErrorIs(t, err, ErrLoopLimitExceeded)
	assert.Len(t, resp.ToolResults, 2)

	last := conv.Messages[len(conv.Messages)-1]
	assert.Equal(t, "c", last.ToolCallID)
	assert.True(t, last.IsError)
}

func TestProcess_CancelledDuringTool(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slow := &mockTool{name: "slow", executeFunc: func(ctx context.Context, _ json.RawMessage) (tool.Result, error) {
		cancel()
		return tool.Succeeded("finished anyway"), nil
	}}
	p := scripted(&provider.Response{ToolCalls: []provider.ToolCall{
		toolCall("a", "slow", `{}`), toolCall("b", "slow", `{}`),
	}})
	l, _ := newTestLoop(p, slow)
	conv := session.NewConversation("s", provider.Options{})

	resp, err := l.Process(ctx, "go", conv)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, resp.ToolResults, "a result produced after cancellation is dropped")
	assert.Equal(t, 1, slow.executed)

	require.Len(t, conv.Messages, 4)
	for _, m := range conv.Messages[2:] {
		assert.Equal(t, provider.RoleTool, m.Role)
		assert.Equal(t, "Error: cancelled", m.Content)
	}
}

func TestProcess_CancelledDuringModelCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &mockProvider{generateFunc: func(ctx context.Context, _ []provider.Message, _ provider.Options, _ []tool.Declaration) (*provider.Response, error) {
		cancel()
		return nil, ctx.Err()
	}}
	l, _ := newTestLoop(p)
	conv := session.NewConversation("s", provider.Options{})

	_, err := l.Process(ctx, "hi", conv)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, conv.Messages, 1)
}

func TestProcess_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := scripted(&provider.Response{Content: "x"})
	l, _ := newTestLoop(p)
	conv := session.NewConversation("s", provider.Options{})

	_, err := l.Process(ctx, "hi", conv)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, conv.Messages)
	assert.Zero(t, p.calls)
}

func TestProcess_SynthesizesMissingCallIDs(t *testing.T) {
	p := scripted(
		&provider.Response{ToolCalls: []provider.ToolCall{toolCall("", "echo", `{}`), toolCall("dup", "echo", `{}`), toolCall("dup", "echo", `{}`)}},
		&provider.Response{Content: "done"},
	)
	l, _ := newTestLoop(p, &mockTool{name: "echo"})
	conv := session.NewConversation("s", provider.Options{})

	resp, err := l.Process(context.Background(), "go", conv)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, r := range resp.ToolResults {
		assert.NotEmpty(t, r.ToolCallID)
		ids[r.ToolCallID] = true
	}
	assert.Len(t, ids, 3)
	assert.Equal(t, "dup", conv.Messages[1].ToolCalls[1].ID)
}

func TestProcess_PassesOptionsAndSumsUsage(t *testing.T) {
	var gotOpts provider.Options
	round := 0
	p := &mockProvider{generateFunc: func(_ context.Context, _ []provider.Message, opts provider.Options, _ []tool.Declaration) (*provider.Response, error) {
		gotOpts = opts
		round++
		if round == 1 {
			return &provider.Response{ToolCalls: []provider.ToolCall{toolCall("a", "echo", `{}`)}, Usage: provider.Usage{InputTokens: 10, OutputTokens: 1}}, nil
		}
		return &provider.Response{Content: "ok", Usage: provider.Usage{InputTokens: 20, OutputTokens: 4}}, nil
	}}
	l, _ := newTestLoop(p, &mockTool{name: "echo"})
	conv := session.NewConversation("s", provider.Options{SystemPrompt: "be terse", Model: "m"})

	resp, err := l.Process(context.Background(), "go", conv)
	require.NoError(t, err)
	assert.Equal(t, "be terse", gotOpts.SystemPrompt)
	assert.Equal(t, provider.Usage{InputTokens: 30, OutputTokens: 5}, resp.Usage)
	assert.Equal(t, 35, resp.Usage.TotalTokens())
}

func TestProcess_EventsAndTelemetry(t *testing.T) {
	events := make(chan workflow.Event, 32)
	rec := &telemetrytest.Recorder{}
	p := scripted(
		&provider.Response{Content: "checking", ToolCalls: []provider.ToolCall{toolCall("a", "echo", `{}`)}},
		&provider.Response{Content: "done"},
	)
	l := NewLoop(p, tool.NewRegistry(&mockTool{name: "echo"}), risk.NewClassifier(nil), &mockGate{}, Options{Events: events, Emitter: rec})

	_, err := l.Process(context.Background(), "go", session.NewConversation("s", provider.Options{}))
	require.NoError(t, err)
	close(events)

	var kinds []string
	for ev := range events {
		switch ev.(type) {
		case workflow.ThinkingEvent:
			kinds = append(kinds, "thinking")
		case workflow.TextEvent:
			kinds = append(kinds, "text")
		case workflow.ToolStartEvent:
			kinds = append(kinds, "start")
		case workflow.PermissionEvent:
			kinds = append(kinds, "permission")
		case workflow.ToolEndEvent:
			kinds = append(kinds, "end")
		case workflow.DoneEvent:
			kinds = append(kinds, "done")
		}
	}
	assert.Equal(t, []string{"thinking", "text", "start", "permission", "end", "thinking", "text", "done"}, kinds)

	turns := rec.Named(telemetry.EventAgentTurn)
	require.Len(t, turns, 1)
	assert.Equal(t, 2, turns[0].Attributes["rounds"])
	assert.Equal(t, 1, turns[0].Attributes["tool_calls"])
	assert.Len(t, rec.Named(telemetry.EventToolExecution), 1)
}

func TestNewLoop_RequiresDependencies(t *testing.T) {
	p := scripted(&provider.Response{})
	reg := tool.NewRegistry()
	cls := risk.NewClassifier(nil)
	gate := &mockGate{}
	assert.Panics(t, func() { NewLoop(nil, reg, cls, gate, Options{}) })
	assert.Panics(t, func() { NewLoop(p, nil, cls, gate, Options{}) })
	assert.Panics(t, func() { NewLoop(p, reg, nil, gate, Options{}) })
	assert.Panics(t, func() { NewLoop(p, reg, cls, nil, Options{}) })
}
