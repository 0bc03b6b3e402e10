package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/agentgate/internal/provider"
	"github.com/Cyclone1070/agentgate/internal/tool"
)

func TestGenerate_TextAndToolUse(t *testing.T) {
	var got sdk.MessageNewParams
	client := &MockMessagesClient{CreateMessageFunc: func(_ context.Context, params sdk.MessageNewParams) (*sdk.Message, error) {
		got = params
		return &sdk.Message{
			Model:      "claude-test-1",
			StopReason: sdk.StopReasonToolUse,
			Usage:      sdk.Usage{InputTokens: 40, OutputTokens: 9},
			Content: []sdk.ContentBlockUnion{
				{Type: "thinking", Thinking: "hmm"},
				{Type: "text", Text: "Checking."},
				{Type: "tool_use", ID: "toolu_1", Name: "list_directory", Input: json.RawMessage(`{"path":"."}`)},
				{Type: "tool_use", ID: "toolu_2", Name: "noop"},
			},
		}, nil
	}}
	p := New(client, "")
	temp := float32(0.5)
	decls := []tool.Declaration{{
		Name:        "list_directory",
		Description: "Lists a directory",
		Parameters: &tool.Schema{
			Type:       tool.TypeObject,
			Properties: map[string]*tool.Schema{"path": {Type: tool.TypeString}},
			Required:   []string{"path"},
		},
	}}

	resp, err := p.Generate(context.Background(),
		[]provider.Message{{Role: provider.RoleUser, Content: "what's here?"}},
		provider.Options{SystemPrompt: "be careful", Temperature: &temp},
		decls,
	)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, sdk.Model(DefaultModel), got.Model)
	assert.Equal(t, int64(defaultMaxTokens), got.MaxTokens)
	require.Len(t, got.System, 1)
	assert.Equal(t, "be careful", got.System[0].Text)
	assert.InDelta(t, 0.5, got.Temperature.Value, 1e-6)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "list_directory", got.Tools[0].OfTool.Name)
	assert.Equal(t, []string{"path"}, got.Tools[0].OfTool.InputSchema.Required)

	assert.Equal(t, "Checking.", resp.Content)
	assert.Equal(t, "claude-test-1", resp.Model)
	assert.Equal(t, "tool_use", resp.StopReason)
	assert.Equal(t, provider.Usage{InputTokens: 40, OutputTokens: 9}, resp.Usage)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"path":"."}`, string(resp.ToolCalls[0].Arguments))
	assert.JSONEq(t, `{}`, string(resp.ToolCalls[1].Arguments))
}

func TestToMessageParams_MergesToolResults(t *testing.T) {
	msgs := []provider.Message{
		{Role: provider.RoleSystem, Content: "extra"},
		{Role: provider.RoleUser, Content: "go"},
		{Role: provider.RoleAssistant, ToolCalls: []provider.ToolCall{
			{ID: "a", Name: "read_file", Arguments: json.RawMessage(`{"path":"x"}`)},
			{ID: "b", Name: "shell", Arguments: json.RawMessage(`not json`)},
		}},
		{Role: provider.RoleTool, ToolCallID: "a", Content: "data"},
		{Role: provider.RoleTool, ToolCallID: "b", Content: "permission denied", IsError: true},
		{Role: provider.RoleAssistant, Content: "done"},
	}

	params, system := toMessageParams(msgs)
	assert.Equal(t, []string{"extra"}, system)
	require.Len(t, params, 4)

	assert.Equal(t, sdk.MessageParamRoleAssistant, params[1].Role)
	require.Len(t, params[1].Content, 2)
	assert.Equal(t, map[string]any{"path": "x"}, params[1].Content[0].OfToolUse.Input)
	assert.Equal(t, map[string]any{}, params[1].Content[1].OfToolUse.Input)

	results := params[2]
	assert.Equal(t, sdk.MessageParamRoleUser, results.Role)
	require.Len(t, results.Content, 2)
	assert.Equal(t, "a", results.Content[0].OfToolResult.ToolUseID)
	assert.False(t, results.Content[0].OfToolResult.IsError.Value)
	assert.True(t, results.Content[1].OfToolResult.IsError.Value)
	assert.Equal(t, "permission denied", results.Content[1].OfToolResult.Content[0].OfText.Text)
}

func TestFromMessage_Errors(t *testing.T) {
	_, err := fromMessage(nil, "m")
	assert.ErrorIs(t, err, provider.ErrEmptyResponse)

	_, err = fromMessage(&sdk.Message{StopReason: sdk.StopReasonRefusal}, "m")
	assert.ErrorIs(t, err, provider.ErrContentBlocked)
}

func apiError(status int, header http.Header) *sdk.Error {
	u, _ := url.Parse("https://api.anthropic.com/v1/messages")
	return &sdk.Error{
		StatusCode: status,
		Request:    &http.Request{Method: http.MethodPost, URL: u},
		Response:   &http.Response{StatusCode: status, Header: header},
	}
}

func TestMapError(t *testing.T) {
	ctx := context.Background()

	err := mapError(ctx, apiError(401, http.Header{}))
	assert.ErrorIs(t, err, provider.ErrAuthentication)
	assert.False(t, provider.IsRetryable(err))

	err = mapError(ctx, apiError(529, http.Header{}))
	assert.ErrorIs(t, err, provider.ErrServiceUnavailable)
	assert.True(t, provider.IsRetryable(err))

	err = mapError(ctx, apiError(429, http.Header{"Retry-After": []string{"4"}}))
	assert.ErrorIs(t, err, provider.ErrRateLimit)
	after := provider.GetRetryAfter(err)
	require.NotNil(t, after)
	assert.Equal(t, 4*time.Second, *after)

	err = mapError(ctx, errors.New("EOF"))
	var pe *provider.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, provider.ErrorCodeNetwork, pe.Code)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, mapError(cancelled, errors.New("aborted")), context.Canceled)
}

func TestGenerate_PropagatesMappedError(t *testing.T) {
	client := &MockMessagesClient{CreateMessageFunc: func(context.Context, sdk.MessageNewParams) (*sdk.Message, error) {
		return nil, apiError(400, http.Header{})
	}}
	_, err := New(client, "m").Generate(context.Background(), []provider.Message{{Role: provider.RoleUser, Content: "x"}}, provider.Options{MaxOutputTokens: 10}, nil)
	assert.ErrorIs(t, err, provider.ErrInvalidRequest)
}
