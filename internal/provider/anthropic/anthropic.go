// Package anthropic implements provider.Provider on the Anthropic Messages API.
package anthropic

import (
	"context"

	"github.com/Cyclone1070/agentgate/internal/provider"
	"github.com/Cyclone1070/agentgate/internal/tool"
)

const name = "anthropic"

const (
	DefaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 8192
)

// AnthropicProvider implements provider.Provider for Claude models.
type AnthropicProvider struct {
	client    MessagesClient
	modelName string
}

// New creates an AnthropicProvider with the specified client and model.
func New(client MessagesClient, modelName string) *AnthropicProvider {
	if client == nil {
		panic("client is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &AnthropicProvider{client: client, modelName: modelName}
}

func (p *AnthropicProvider) Name() string { return name }

func (p *AnthropicProvider) Generate(ctx context.Context, messages []provider.Message, opts provider.Options, tools []tool.Declaration) (*provider.Response, error) {
	model := p.modelName
	if opts.Model != "" {
		model = opts.Model
	}

	params := buildParams(model, messages, opts, tools)
	msg, err := p.client.CreateMessage(ctx, params)
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return fromMessage(msg, model)
}
