// Package gemini implements provider.Provider on the Google Gemini API.
package gemini

import (
	"context"

	"github.com/Cyclone1070/agentgate/internal/provider"
	"github.com/Cyclone1070/agentgate/internal/tool"
)

const name = "gemini"

// DefaultModel is used when neither the provider nor the request names one.
const DefaultModel = "gemini-2.5-flash"

// GeminiProvider implements provider.Provider for Google Gemini.
type GeminiProvider struct {
	client    GeminiClient
	modelName string
}

// New creates a GeminiProvider with the specified client and model.
func New(client GeminiClient, modelName string) *GeminiProvider {
	if client == nil {
		panic("client is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &GeminiProvider{client: client, modelName: modelName}
}

func (p *GeminiProvider) Name() string { return name }

// Generate sends the history to Gemini and returns its next message.
func (p *GeminiProvider) Generate(ctx context.Context, messages []provider.Message, opts provider.Options, tools []tool.Declaration) (*provider.Response, error) {
	model := p.modelName
	if opts.Model != "" {
		model = opts.Model
	}

	contents, system := toGeminiContents(messages)
	config := toGeminiConfig(opts, system)
	if len(tools) > 0 {
		config.Tools = toGeminiTools(tools)
	}

	resp, err := p.client.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, mapGeminiError(ctx, err)
	}
	return fromGeminiResponse(resp, model)
}
