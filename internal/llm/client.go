// Package llm provides integration with Anthropic's Claude for translating
// chat messages and explaining words between the couple's languages.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Client wraps the Anthropic client for text transforms
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClient creates a new LLM client
func NewClient(apiKey string, model string, maxTokens int) *Client {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Client{
		client:    client,
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// MaxTokens returns the configured max tokens
func (c *Client) MaxTokens() int64 {
	return c.maxTokens
}

// complete sends a single-turn text prompt and returns the trimmed reply
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create message: %w", err)
	}

	// Extract text from response
	if len(message.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var out strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("unexpected response type: %s", message.Content[0].Type)
	}

	return strings.TrimSpace(out.String()), nil
}
