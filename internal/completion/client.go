// Package completion wraps the text-completion service behind a single
// synchronous operation. The refinement loop only ever maps a prompt string
// to a response string; provider choice, retries and timeouts live here.
package completion

import (
	"context"
	"fmt"

	"coverbot/internal/config"
)

// Client defines the minimal interface the refinement loop uses to call a
// completion service.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds a Client from the loaded configuration.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAIClientWithConfig(OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLMTimeout(),
		}), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	default:
		return nil, fmt.Errorf("unknown completion provider: %q", cfg.LLM.Provider)
	}
}
