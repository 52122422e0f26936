package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers. The core only needs a
// single completion primitive: system instruction plus user content in,
// free text out.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single completion request.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	// JSON requests a parseable JSON-object response from providers that
	// support a structured response format. Providers without one ignore it;
	// the system instruction already demands strict JSON.
	JSON bool
}

// Config holds configuration for an LLM client.
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string // override for tests and OpenAI-compatible hosts
	MaxTokens int
	Timeout   time.Duration
}
