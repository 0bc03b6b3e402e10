package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// MessagesClient is the part of the SDK the provider uses.
type MessagesClient interface {
	CreateMessage(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error)
}

// RealMessagesClient wraps the official SDK client to satisfy MessagesClient.
type RealMessagesClient struct {
	client sdk.Client
}

// NewClient creates an SDK client. baseURL may be empty.
func NewClient(apiKey, baseURL string) *RealMessagesClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &RealMessagesClient{client: sdk.NewClient(opts...)}
}

// CreateMessage calls the SDK's Messages.New method.
func (c *RealMessagesClient) CreateMessage(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error) {
	return c.client.Messages.New(ctx, params)
}
