package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"FilingsScanner/internal/config"
	"FilingsScanner/internal/domain"
	"FilingsScanner/internal/ports"
)

const defaultClaudeMaxTokens = 4096

// ClaudeClient summarizes through the Anthropic Messages API.
type ClaudeClient struct {
	client       anthropic.Client
	model        string
	systemPrompt string
	temperature  float64
	maxTokens    int
	timeout      time.Duration
}

var _ ports.Summarizer = (*ClaudeClient)(nil)

// NewClaudeClient builds a client from configuration; Endpoint overrides the API base URL.
func NewClaudeClient(cfg config.SummarizerConfig) (*ClaudeClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}

	return &ClaudeClient{
		client:       anthropic.NewClient(opts...),
		model:        cfg.Model,
		systemPrompt: cfg.Prompt,
		temperature:  cfg.Temperature,
		maxTokens:    maxTokens,
		timeout:      cfg.Timeout,
	}, nil
}

// Summarize sends a single user turn with the instructions as system text.
func (c *ClaudeClient) Summarize(ctx context.Context, text string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
		System: []anthropic.TextBlockParam{
			{Text: safePrompt(c.systemPrompt)},
		},
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(c.temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("anthropic call failed: %w", err)
		}
		return "", fmt.Errorf("%w: anthropic: %v", domain.ErrUpstreamUnavailable, err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text")
	}
	return cleanResponse(out.String()), nil
}
