package llm

import (
	"fmt"

	"github.com/mirzasaddi/expenseai/internal/common"
)

// newGroqClient creates a client for the Groq API. Groq serves hosted open
// models over the OpenAI chat completions wire format, so it shares the
// chatClient implementation.
func newGroqClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq API key is required: %w", common.ErrMissingConfig)
	}
	return newChatClient("groq", "https://api.groq.com/openai/v1", "llama-3.3-70b-versatile", cfg), nil
}
