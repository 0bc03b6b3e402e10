package openai

import (
	"context"
	"errors"

	sdk "github.com/openai/openai-go"
)

// MockCompletionsClient is a mock implementation of CompletionsClient for testing.
type MockCompletionsClient struct {
	CreateChatCompletionFunc func(ctx context.Context, params sdk.ChatCompletionNewParams) (*sdk.ChatCompletion, error)
}

func (m *MockCompletionsClient) CreateChatCompletion(ctx context.Context, params sdk.ChatCompletionNewParams) (*sdk.ChatCompletion, error) {
	if m.CreateChatCompletionFunc != nil {
		return m.CreateChatCompletionFunc(ctx, params)
	}
	return nil, errors.New("CreateChatCompletionFunc not set")
}
