package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"coverbot/internal/logging"
)

// GeminiClient implements Client using Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a new Gemini completion client.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

// Complete sends a prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	startTime := time.Now()
	logging.APIDebug("[Gemini] Complete: model=%s prompt_len=%d", c.model, len(prompt))

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		logging.APIError("[Gemini] Complete failed after %v: %v", time.Since(startTime), err)
		return "", fmt.Errorf("generate content failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("no completion returned")
	}

	logging.API("[Gemini] Complete: completed in %v response_len=%d", time.Since(startTime), len(text))
	return text, nil
}

// GetModel returns the current model.
func (c *GeminiClient) GetModel() string {
	return c.model
}
