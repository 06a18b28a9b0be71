package llm

import (
	"fmt"

	"FilingsScanner/internal/config"
	"FilingsScanner/internal/ports"
)

// New selects the summarizer backend named by cfg.Provider.
func New(cfg config.SummarizerConfig) (ports.Summarizer, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaClient(cfg), nil
	case "openai":
		return NewChatGPTClient(cfg), nil
	case "anthropic":
		return NewClaudeClient(cfg)
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Provider)
	}
}
