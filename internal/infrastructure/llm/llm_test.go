package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FilingsScanner/internal/config"
	"FilingsScanner/internal/domain"
)

func TestOllamaSummarize(t *testing.T) {
	t.Parallel()

	var got ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"qwen3:latest","response":"<think>plan</think>\n**TL;DR** ok\n","done":true}`))
	}))
	defer server.Close()

	client := NewOllamaClient(config.SummarizerConfig{
		Endpoint:    server.URL + "/",
		Model:       "qwen3:latest",
		Prompt:      "Resuma.",
		Temperature: 0.2,
		ContextSize: 8192,
		Timeout:     time.Second,
	})

	summary, err := client.Summarize(context.Background(), "texto do relatório")
	require.NoError(t, err)
	assert.Equal(t, "**TL;DR** ok", summary)

	assert.Equal(t, "qwen3:latest", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, "Resuma.\n\n\"\"\"\ntexto do relatório\n\"\"\"", got.Prompt)
	assert.Equal(t, 0.2, got.Options.Temperature)
	assert.Equal(t, 1, got.Options.TopK)
	assert.Equal(t, 8192, got.Options.NumCtx)
}

func TestOllamaErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewOllamaClient(config.SummarizerConfig{Endpoint: server.URL, Model: "missing", Timeout: time.Second})
	_, err := client.Summarize(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")

	client = NewOllamaClient(config.SummarizerConfig{Endpoint: "http://127.0.0.1:1", Model: "m", Timeout: time.Second})
	_, err = client.Summarize(context.Background(), "x")
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))

	client = NewOllamaClient(config.SummarizerConfig{Model: "m"})
	_, err = client.Summarize(context.Background(), "x")
	assert.Error(t, err)
}

func TestDefaultPromptUsedWhenEmpty(t *testing.T) {
	t.Parallel()

	prompt := buildPrompt("   ", "body")
	assert.True(t, strings.HasPrefix(prompt, DefaultPrompt))
	assert.True(t, strings.HasSuffix(prompt, "\"\"\"\nbody\n\"\"\""))
}

func TestChatGPTSummarize(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var payload struct {
			Model    string              `json:"model"`
			Messages []map[string]string `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if !assert.Len(t, payload.Messages, 2) {
			return
		}
		assert.Equal(t, "system", payload.Messages[0]["role"])
		assert.Equal(t, "user", payload.Messages[1]["role"])
		assert.Equal(t, "documento", payload.Messages[1]["content"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" resumo "}}]}`))
	}))
	defer server.Close()

	client := NewChatGPTClient(config.SummarizerConfig{
		Endpoint: server.URL,
		Model:    "gpt-4o-mini",
		APIKey:   "secret",
		Timeout:  time.Second,
	})
	summary, err := client.Summarize(context.Background(), "documento")
	require.NoError(t, err)
	assert.Equal(t, "resumo", summary)
}

func TestChatGPTNoChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewChatGPTClient(config.SummarizerConfig{Endpoint: server.URL, Model: "m", APIKey: "k", Timeout: time.Second})
	_, err := client.Summarize(context.Background(), "documento")
	assert.Error(t, err)

	_, err = NewChatGPTClient(config.SummarizerConfig{Model: "m"}).Summarize(context.Background(), "x")
	assert.Error(t, err, "missing api key")
}

func TestClaudeSummarize(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "claude-test", payload["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "**TL;DR** resumo"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	client, err := NewClaudeClient(config.SummarizerConfig{
		Endpoint: server.URL,
		Model:    "claude-test",
		APIKey:   "secret",
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)

	summary, err := client.Summarize(context.Background(), "documento")
	require.NoError(t, err)
	assert.Equal(t, "**TL;DR** resumo", summary)
}

func TestClaudeErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`))
	}))
	defer server.Close()

	client, err := NewClaudeClient(config.SummarizerConfig{Endpoint: server.URL, Model: "m", APIKey: "k", Timeout: 5 * time.Second})
	require.NoError(t, err)
	_, err = client.Summarize(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrUpstreamUnavailable), "an api error is not an outage")

	client, err = NewClaudeClient(config.SummarizerConfig{Endpoint: "http://127.0.0.1:1", Model: "m", APIKey: "k", Timeout: 5 * time.Second})
	require.NoError(t, err)
	_, err = client.Summarize(context.Background(), "x")
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
}

func TestNewSelectsProvider(t *testing.T) {
	t.Parallel()

	s, err := New(config.SummarizerConfig{Provider: "ollama", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaClient{}, s)

	s, err = New(config.SummarizerConfig{Provider: "openai", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &ChatGPTClient{}, s)

	_, err = New(config.SummarizerConfig{Provider: "anthropic", Model: "m"})
	assert.Error(t, err, "anthropic needs an api key")

	_, err = New(config.SummarizerConfig{Provider: "bard"})
	assert.Error(t, err)
}
