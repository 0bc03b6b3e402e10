package anthropic

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
)

// MockMessagesClient is a mock implementation of MessagesClient for testing.
type MockMessagesClient struct {
	CreateMessageFunc func(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error)
}

func (m *MockMessagesClient) CreateMessage(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error) {
	if m.CreateMessageFunc != nil {
		return m.CreateMessageFunc(ctx, params)
	}
	return nil, errors.New("CreateMessageFunc not set")
}
