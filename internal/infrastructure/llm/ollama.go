package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"FilingsScanner/internal/config"
	"FilingsScanner/internal/domain"
	"FilingsScanner/internal/ports"
)

// OllamaClient summarizes through a local Ollama /api/generate endpoint.
type OllamaClient struct {
	endpoint    string
	model       string
	prompt      string
	temperature float64
	contextSize int
	httpClient  *http.Client
}

var _ ports.Summarizer = (*OllamaClient)(nil)

type ollamaOptions struct {
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	TopK        int      `json:"top_k"`
	NumCtx      int      `json:"num_ctx"`
	Stop        []string `json:"stop"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// NewOllamaClient builds a client from configuration.
func NewOllamaClient(cfg config.SummarizerConfig) *OllamaClient {
	return &OllamaClient{
		endpoint:    strings.TrimSuffix(cfg.Endpoint, "/"),
		model:       cfg.Model,
		prompt:      cfg.Prompt,
		temperature: cfg.Temperature,
		contextSize: cfg.ContextSize,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Summarize sends one non-streaming generate request.
func (c *OllamaClient) Summarize(ctx context.Context, text string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("ollama client is nil")
	}
	if c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("ollama client misconfigured")
	}

	body, err := json.Marshal(ollamaRequest{
		Model:  c.model,
		Prompt: buildPrompt(c.prompt, text),
		Options: ollamaOptions{
			Temperature: c.temperature,
			TopP:        1,
			TopK:        1,
			NumCtx:      c.contextSize,
			Stop:        []string{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal ollama payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: ollama: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("ollama error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("ollama error: %s", decoded.Error)
	}

	return cleanResponse(decoded.Response), nil
}
