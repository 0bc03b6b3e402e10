package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Cyclone1070/agentgate/internal/provider"
	"github.com/Cyclone1070/agentgate/internal/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{genai.NewPartFromText(text)}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 12, CandidatesTokenCount: 3, TotalTokenCount: 15},
	}
}

func TestGenerate_Text(t *testing.T) {
	var gotModel string
	var gotConfig *genai.GenerateContentConfig
	client := &MockGeminiClient{GenerateContentFunc: func(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		gotModel = model
		gotConfig = config
		require.Len(t, contents, 1)
		assert.Equal(t, "user", contents[0].Role)
		return textResponse("Hello there"), nil
	}}
	p := New(client, "gemini-test")

	temp := float32(0.3)
	resp, err := p.Generate(context.Background(),
		[]provider.Message{{Role: provider.RoleUser, Content: "Hi"}},
		provider.Options{SystemPrompt: "be brief", Temperature: &temp, MaxOutputTokens: 256},
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, "gemini", p.Name())
	assert.Equal(t, "gemini-test", gotModel)
	assert.Equal(t, "Hello there", resp.Content)
	assert.Equal(t, provider.Usage{InputTokens: 12, OutputTokens: 3}, resp.Usage)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Empty(t, resp.ToolCalls)

	require.NotNil(t, gotConfig.SystemInstruction)
	assert.Equal(t, "be brief", gotConfig.SystemInstruction.Parts[0].Text)
	assert.Equal(t, &temp, gotConfig.Temperature)
	assert.Equal(t, int32(256), gotConfig.MaxOutputTokens)
	assert.Len(t, gotConfig.SafetySettings, 4)
	assert.Nil(t, gotConfig.Tools)
}

func TestGenerate_ModelOverride(t *testing.T) {
	var gotModel string
	client := &MockGeminiClient{GenerateContentFunc: func(_ context.Context, model string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		gotModel = model
		return textResponse("x"), nil
	}}
	_, err := New(client, "").Generate(context.Background(), []provider.Message{{Role: provider.RoleUser, Content: "x"}}, provider.Options{Model: "gemini-pro"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini-pro", gotModel)
}

func TestGenerate_ToolCalls(t *testing.T) {
	client := &MockGeminiClient{GenerateContentFunc: func(_ context.Context, _ string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		require.Len(t, config.Tools, 1)
		fd := config.Tools[0].FunctionDeclarations[0]
		assert.Equal(t, "read_file", fd.Name)
		assert.Equal(t, genai.TypeObject, fd.Parameters.Type)
		assert.Equal(t, genai.TypeString, fd.Parameters.Properties["path"].Type)
		assert.Equal(t, []string{"path"}, fd.Parameters.Required)

		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
				{Text: "thinking about it", Thought: true},
				{Text: "Let me read that."},
				{FunctionCall: &genai.FunctionCall{ID: "fc-1", Name: "read_file", Args: map[string]any{"path": "a.go"}}},
			}},
			FinishReason: genai.FinishReasonStop,
		}}}, nil
	}}
	decls := []tool.Declaration{{
		Name:        "read_file",
		Description: "Reads a file",
		Parameters: &tool.Schema{
			Type:       tool.TypeObject,
			Properties: map[string]*tool.Schema{"path": {Type: tool.TypeString}},
			Required:   []string{"path"},
		},
	}}

	resp, err := New(client, "m").Generate(context.Background(), []provider.Message{{Role: provider.RoleUser, Content: "read a.go"}}, provider.Options{}, decls)
	require.NoError(t, err)
	assert.Equal(t, "Let me read that.", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "fc-1", resp.ToolCalls[0].ID)
	assert.Equal(t, "read_file", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"path":"a.go"}`, string(resp.ToolCalls[0].Arguments))
}

func TestToGeminiContents_TranscriptRoundTrip(t *testing.T) {
	msgs := []provider.Message{
		{Role: provider.RoleSystem, Content: "extra rules"},
		{Role: provider.RoleUser, Content: "do two things"},
		{Role: provider.RoleAssistant, Content: "ok", ToolCalls: []provider.ToolCall{
			{ID: "a", Name: "read_file", Arguments: json.RawMessage(`{"path":"x"}`)},
			{ID: "b", Name: "shell", Arguments: json.RawMessage(`{"command":"ls"}`)},
		}},
		{Role: provider.RoleTool, ToolCallID: "a", ToolName: "read_file", Content: "data"},
		{Role: provider.RoleTool, ToolCallID: "b", ToolName: "shell", Content: "permission denied", IsError: true},
		{Role: provider.RoleAssistant, Content: "done"},
	}

	contents, system := toGeminiContents(msgs)
	assert.Equal(t, []string{"extra rules"}, system)
	require.Len(t, contents, 4)

	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[1].Parts, 3)
	assert.Equal(t, "x", contents[1].Parts[1].FunctionCall.Args["path"])

	responses := contents[2]
	assert.Equal(t, "user", responses.Role)
	require.Len(t, responses.Parts, 2, "consecutive tool results share one turn")
	assert.Equal(t, "a", responses.Parts[0].FunctionResponse.ID)
	assert.Equal(t, "data", responses.Parts[0].FunctionResponse.Response["output"])
	assert.Equal(t, "permission denied", responses.Parts[1].FunctionResponse.Response["error"])

	assert.Equal(t, "done", contents[3].Parts[0].Text)
}

func TestFromGeminiResponse_Errors(t *testing.T) {
	_, err := fromGeminiResponse(&genai.GenerateContentResponse{}, "m")
	assert.ErrorIs(t, err, provider.ErrEmptyResponse)

	_, err = fromGeminiResponse(&genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: "SAFETY"},
	}, "m")
	assert.ErrorIs(t, err, provider.ErrContentBlocked)

	_, err = fromGeminiResponse(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}, "m")
	assert.ErrorIs(t, err, provider.ErrContentBlocked)

	resp, err := fromGeminiResponse(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonMaxTokens}}}, "m")
	require.NoError(t, err)
	assert.Equal(t, "max_tokens", resp.StopReason)
}

func TestMapGeminiError(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		err       error
		code      provider.ErrorCode
		retryable bool
	}{
		{"auth", genai.APIError{Code: 401, Message: "bad key"}, provider.ErrorCodeAuth, false},
		{"forbidden", genai.APIError{Code: 403}, provider.ErrorCodeAuth, false},
		{"rate limit", genai.APIError{Code: 429}, provider.ErrorCodeRateLimit, true},
		{"bad request", genai.APIError{Code: 400, Message: "nope"}, provider.ErrorCodeInvalidRequest, false},
		{"unavailable", genai.APIError{Code: 503}, provider.ErrorCodeUnavailable, true},
		{"network", errors.New("connection reset"), provider.ErrorCodeNetwork, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapGeminiError(ctx, tt.err)
			var pe *provider.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.code, pe.Code)
			assert.Equal(t, tt.retryable, pe.Retryable)
			assert.Equal(t, "gemini", pe.Provider)
		})
	}
}

func TestMapGeminiError_RetryInfo(t *testing.T) {
	err := mapGeminiError(context.Background(), genai.APIError{
		Code: 429,
		Details: []map[string]any{
			{"@type": "type.googleapis.com/google.rpc.QuotaFailure"},
			{"@type": "type.googleapis.com/google.rpc.RetryInfo", "retryDelay": "31s"},
		},
	})
	after := provider.GetRetryAfter(err)
	require.NotNil(t, after)
	assert.Equal(t, 31*time.Second, *after)
}

func TestMapGeminiError_ContextPassthrough(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := mapGeminiError(ctx, errors.New("request aborted"))
	assert.ErrorIs(t, err, context.Canceled)
}
