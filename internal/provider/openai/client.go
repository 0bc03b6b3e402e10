package openai

import (
	"context"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// CompletionsClient is the part of the SDK the provider uses.
type CompletionsClient interface {
	CreateChatCompletion(ctx context.Context, params sdk.ChatCompletionNewParams) (*sdk.ChatCompletion, error)
}

// RealCompletionsClient wraps the official SDK client to satisfy CompletionsClient.
type RealCompletionsClient struct {
	client sdk.Client
}

// NewClient creates an SDK client. A non-empty baseURL points it at any
// OpenAI-compatible endpoint.
func NewClient(apiKey, baseURL string) *RealCompletionsClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &RealCompletionsClient{client: sdk.NewClient(opts...)}
}

// CreateChatCompletion calls the SDK's Chat.Completions.New method.
func (c *RealCompletionsClient) CreateChatCompletion(ctx context.Context, params sdk.ChatCompletionNewParams) (*sdk.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
