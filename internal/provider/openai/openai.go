// Package openai implements provider.Provider on the Chat Completions API,
// including OpenAI-compatible servers reached through a custom base URL.
package openai

import (
	"context"

	"github.com/Cyclone1070/agentgate/internal/provider"
	"github.com/Cyclone1070/agentgate/internal/tool"
)

const name = "openai"

const DefaultModel = "gpt-4o-mini"

// OpenAIProvider implements provider.Provider for OpenAI-compatible APIs.
type OpenAIProvider struct {
	client    CompletionsClient
	modelName string
}

// New creates an OpenAIProvider with the specified client and model.
func New(client CompletionsClient, modelName string) *OpenAIProvider {
	if client == nil {
		panic("client is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &OpenAIProvider{client: client, modelName: modelName}
}

func (p *OpenAIProvider) Name() string { return name }

func (p *OpenAIProvider) Generate(ctx context.Context, messages []provider.Message, opts provider.Options, tools []tool.Declaration) (*provider.Response, error) {
	model := p.modelName
	if opts.Model != "" {
		model = opts.Model
	}

	completion, err := p.client.CreateChatCompletion(ctx, buildParams(model, messages, opts, tools))
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return fromCompletion(completion, model)
}
