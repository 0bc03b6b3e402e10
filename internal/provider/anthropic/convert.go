package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/Cyclone1070/agentgate/internal/provider"
	"github.com/Cyclone1070/agentgate/internal/tool"
)

func buildParams(model string, messages []provider.Message, opts provider.Options, tools []tool.Declaration) sdk.MessageNewParams {
	msgs, system := toMessageParams(messages)

	maxTokens := int64(opts.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}

	if opts.SystemPrompt != "" {
		system = append([]string{opts.SystemPrompt}, system...)
	}
	if len(system) > 0 {
		params.System = []sdk.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}
	if opts.Temperature != nil {
		params.Temperature = sdk.Float(float64(*opts.Temperature))
	}
	if opts.TopP != nil {
		params.TopP = sdk.Float(float64(*opts.TopP))
	}
	if len(opts.StopSequences) > 0 {
		params.StopSequences = opts.StopSequences
	}
	if len(tools) > 0 {
		params.Tools = toToolParams(tools)
	}
	return params
}

// toMessageParams converts the transcript. Tool results travel as user
// turns, and consecutive turns with the same role are merged because the
// API requires strict alternation.
func toMessageParams(messages []provider.Message) ([]sdk.MessageParam, []string) {
	var (
		params []sdk.MessageParam
		system []string
	)
	push := func(role sdk.MessageParamRole, blocks ...sdk.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(params); n > 0 && params[n-1].Role == role {
			params[n-1].Content = append(params[n-1].Content, blocks...)
			return
		}
		params = append(params, sdk.MessageParam{Role: role, Content: blocks})
	}

	for _, msg := range messages {
		switch msg.Role {
		case provider.RoleSystem:
			if msg.Content != "" {
				system = append(system, msg.Content)
			}
		case provider.RoleUser:
			if msg.Content != "" {
				push(sdk.MessageParamRoleUser, sdk.NewTextBlock(msg.Content))
			}
		case provider.RoleAssistant:
			var blocks []sdk.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input any = map[string]any{}
				if len(tc.Arguments) > 0 {
					var parsed map[string]any
					if err := json.Unmarshal(tc.Arguments, &parsed); err == nil && parsed != nil {
						input = parsed
					}
				}
				blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			push(sdk.MessageParamRoleAssistant, blocks...)
		case provider.RoleTool:
			push(sdk.MessageParamRoleUser, sdk.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError))
		}
	}
	return params, system
}

func toToolParams(decls []tool.Declaration) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(decls))
	for _, d := range decls {
		schema := d.Parameters.JSONMap()
		input := sdk.ToolInputSchemaParam{Properties: schema["properties"]}
		if d.Parameters != nil {
			input.Required = d.Parameters.Required
		}
		out = append(out, sdk.ToolUnionParam{
			OfTool: &sdk.ToolParam{
				Name:        d.Name,
				Description: sdk.String(d.Description),
				InputSchema: input,
			},
		})
	}
	return out
}

func fromMessage(msg *sdk.Message, model string) (*provider.Response, error) {
	if msg == nil {
		return nil, &provider.ProviderError{
			Provider: name,
			Code:     provider.ErrorCodeEmptyResponse,
			Message:  "no message in response",
		}
	}
	if msg.StopReason == sdk.StopReasonRefusal {
		return nil, &provider.ProviderError{
			Provider: name,
			Code:     provider.ErrorCodeContentBlocked,
			Message:  "model refused to answer",
		}
	}

	out := &provider.Response{
		Model:      model,
		StopReason: string(msg.StopReason),
		Usage: provider.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	if msg.Model != "" {
		out.Model = string(msg.Model)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := block.Input
			if len(args) == 0 || string(args) == "null" {
				args = json.RawMessage("{}")
			}
			out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}
	out.Content = text.String()
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
		pe := provider.ErrorFromStatus(name, apiErr.StatusCode, http.StatusText(apiErr.StatusCode), err)
		// Anthropic reports an overloaded API with a non-standard 529.
		if apiErr.StatusCode == 529 {
			pe.Message = "overloaded"
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
