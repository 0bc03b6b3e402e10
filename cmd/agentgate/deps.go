package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/Cyclone1070/agentgate/internal/config"
	"github.com/Cyclone1070/agentgate/internal/provider"
	"github.com/Cyclone1070/agentgate/internal/provider/anthropic"
	"github.com/Cyclone1070/agentgate/internal/provider/gemini"
	"github.com/Cyclone1070/agentgate/internal/provider/openai"
)

// Dependencies holds the process-level inputs of the CLI so tests can
// replace the terminal and the model backend.
type Dependencies struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// StdinTTY reports whether Stdin is an interactive terminal.
	StdinTTY  bool
	StdoutTTY bool

	ProviderFactory func(ctx context.Context, cfg config.ProviderConfig) (provider.Provider, error)
	Getwd           func() (string, error)
}

func defaultDeps() Dependencies {
	return Dependencies{
		Stdin:           os.Stdin,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
		StdinTTY:        isTerminal(os.Stdin.Fd()),
		StdoutTTY:       isTerminal(os.Stdout.Fd()),
		ProviderFactory: createRealProvider,
		Getwd:           os.Getwd,
	}
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// createRealProvider builds the configured backend. API keys come from the
// environment, which may have been populated from .env.
func createRealProvider(ctx context.Context, cfg config.ProviderConfig) (provider.Provider, error) {
	switch cfg.Name {
	case "gemini":
		apiKey, err := requireEnv("GEMINI_API_KEY")
		if err != nil {
			return nil, err
		}
		client, err := gemini.NewClient(ctx, apiKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return gemini.New(client, cfg.Model), nil
	case "anthropic":
		apiKey, err := requireEnv("ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return anthropic.New(anthropic.NewClient(apiKey, cfg.BaseURL), cfg.Model), nil
	case "openai":
		apiKey, err := requireEnv("OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		return openai.New(openai.NewClient(apiKey, cfg.BaseURL), cfg.Model), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Name)
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s environment variable is required", key)
	}
	return v, nil
}
