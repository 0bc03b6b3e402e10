package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/Cyclone1070/agentgate/internal/provider"
	"github.com/Cyclone1070/agentgate/internal/tool"
)

func buildParams(model string, messages []provider.Message, opts provider.Options, tools []tool.Declaration) sdk.ChatCompletionNewParams {
	params := sdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: toMessageParams(opts.SystemPrompt, messages),
	}
	if opts.Temperature != nil {
		params.Temperature = sdk.Float(float64(*opts.Temperature))
	}
	if opts.TopP != nil {
		params.TopP = sdk.Float(float64(*opts.TopP))
	}
	if opts.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(opts.MaxOutputTokens))
	}
	if len(opts.StopSequences) > 0 {
		params.Stop = sdk.ChatCompletionNewParamsStopUnion{OfStringArray: opts.StopSequences}
	}
	if len(tools) > 0 {
		params.Tools = toToolParams(tools)
	}
	return params
}

func toMessageParams(systemPrompt string, messages []provider.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, sdk.SystemMessage(systemPrompt))
	}
	for _, msg := range messages {
		switch msg.Role {
		case provider.RoleSystem:
			out = append(out, sdk.SystemMessage(msg.Content))
		case provider.RoleUser:
			out = append(out, sdk.UserMessage(msg.Content))
		case provider.RoleAssistant:
			a := sdk.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				a.Content.OfString = sdk.String(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				args := string(tc.Arguments)
				if args == "" {
					args = "{}"
				}
				a.ToolCalls = append(a.ToolCalls, sdk.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: sdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: args,
					},
				})
			}
			out = append(out, sdk.ChatCompletionMessageParamUnion{OfAssistant: &a})
		case provider.RoleTool:
			content := msg.Content
			if msg.IsError {
				content = "Error: " + content
			}
			out = append(out, sdk.ToolMessage(content, msg.ToolCallID))
		}
	}
	return out
}

func toToolParams(decls []tool.Declaration) []sdk.ChatCompletionToolParam {
	out := make([]sdk.ChatCompletionToolParam, 0, len(decls))
	for _, d := range decls {
		out = append(out, sdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        d.Name,
				Description: sdk.String(d.Description),
				Parameters:  shared.FunctionParameters(d.Parameters.JSONMap()),
			},
		})
	}
	return out
}

func fromCompletion(c *sdk.ChatCompletion, model string) (*provider.Response, error) {
	if c == nil || len(c.Choices) == 0 {
		return nil, &provider.ProviderError{
			Provider: name,
			Code:     provider.ErrorCodeEmptyResponse,
			Message:  "no choices in response",
		}
	}
	choice := c.Choices[0]
	if choice.FinishReason == "content_filter" {
		return nil, &provider.ProviderError{
			Provider: name,
			Code:     provider.ErrorCodeContentBlocked,
			Message:  "content blocked by content filter",
		}
	}

	out := &provider.Response{
		Content:    choice.Message.Content,
		Model:      model,
		StopReason: choice.FinishReason,
		Usage: provider.Usage{
			InputTokens:  int(c.Usage.PromptTokens),
			OutputTokens: int(c.Usage.CompletionTokens),
		},
	}
	if c.Model != "" {
		out.Model = c.Model
	}
	for _, tc := range choice.Message.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if strings.TrimSpace(tc.Function.Arguments) == "" {
			args = json.RawMessage("{}")
		}
		out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return out, nil
}

// mapError maps SDK errors to provider errors. Context errors are returned
// unchanged.
func mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		pe := provider.ErrorFromStatus(name, apiErr.StatusCode, apiErr.Message, err)
		switch apiErr.Code {
		case "context_length_exceeded":
			pe.Code = provider.ErrorCodeContextLength
			pe.Retryable = false
		case "insufficient_quota":
			// Arrives as a 429 but is permanent.
			pe.Retryable = false
		}
		if apiErr.Response != nil {
			pe.RetryAfter = provider.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return pe
	}

	return &provider.ProviderError{
		Provider:   name,
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error",
		Underlying: err,
		Retryable:  true,
	}
}
