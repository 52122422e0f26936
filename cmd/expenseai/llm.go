package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/mirzasaddi/expenseai/internal/common"
	"github.com/mirzasaddi/expenseai/internal/llm"
)

// createOracleClient creates an LLM client based on configuration.
// Shared by the serve and analyze commands.
func createOracleClient() (llm.Client, error) {
	provider := viper.GetString("llm.provider")
	if provider == "" {
		provider = "groq"
	}

	config := llm.Config{
		Provider:  provider,
		Model:     viper.GetString("llm.model"),
		BaseURL:   viper.GetString("llm.base_url"),
		MaxTokens: viper.GetInt("llm.max_tokens"),
		Timeout:   viper.GetDuration("llm.timeout"),
	}

	switch provider {
	case "groq":
		apiKey := viper.GetString("llm.groq_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("GROQ_API_KEY")
		}
		if apiKey == "" {
			return nil, common.NewUserError("groq API key not found in config or GROQ_API_KEY environment variable", common.ErrMissingConfig)
		}
		config.APIKey = apiKey

	case "openai":
		apiKey := viper.GetString("llm.openai_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, common.NewUserError("OpenAI API key not found in config or OPENAI_API_KEY environment variable", common.ErrMissingConfig)
		}
		config.APIKey = apiKey

	case "anthropic":
		apiKey := viper.GetString("llm.anthropic_api_key")
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, common.NewUserError("anthropic API key not found in config or ANTHROPIC_API_KEY environment variable", common.ErrMissingConfig)
		}
		config.APIKey = apiKey

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	client, err := llm.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return client, nil
}
