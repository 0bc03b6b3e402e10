package provider

import (
	"context"

	"github.com/Cyclone1070/agentgate/internal/tool"
)

// Provider is a language-model backend.
type Provider interface {
	// Name identifies the backend (e.g. "gemini"). It is reported in ProviderError.
	Name() string

	// Generate sends the full history and returns the model's next message.
	// Transport, auth and rate-limit failures are returned as *ProviderError.
	Generate(ctx context.Context, messages []Message, opts Options, tools []tool.Declaration) (*Response, error)
}
