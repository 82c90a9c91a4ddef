// Package llm provides provider-abstracted language model access for the
// extraction pipeline, plus parsing of structured JSON out of model replies.
package llm

import (
	"context"
	"fmt"
)

// Provider selects an LLM backend.
type Provider string

// Supported providers.
const (
	// ProviderOpenAI is any OpenAI-compatible chat completions endpoint.
	ProviderOpenAI Provider = "openai"
	// ProviderGemini is Google Gemini via the generative-ai SDK.
	ProviderGemini Provider = "gemini"
)

// Client is an abstraction over LLM providers.
type Client interface {
	// Complete sends a system instruction and a user turn and returns the
	// model's reply text. Sampling is deterministic (temperature 0).
	Complete(ctx context.Context, system, user string) (string, error)
	// Close releases any resources held by the client.
	Close() error
}

// Config holds provider selection and connection settings.
type Config struct {
	Provider Provider
	Endpoint string // base URL for OpenAI-compatible endpoints
	Model    string
	APIKey   string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Model:    "gpt-4o-mini",
	}
}

// NewClient creates an LLM client for the configured provider.
func NewClient(ctx context.Context, cfg *Config) (Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
