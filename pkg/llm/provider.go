package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by providers that were created without credentials.
var ErrNotConfigured = errors.New("llm provider not configured")

// Provider defines the interface for interacting with LLM services.
type Provider interface {
	// GenerateText sends a prompt and returns the text response.
	// name selects a model profile ("story", "summary").
	GenerateText(ctx context.Context, name, prompt string) (string, error)

	// HealthCheck verifies that the provider is configured and reachable.
	HealthCheck(ctx context.Context) error

	// HasProfile checks if the provider has a specific profile configured.
	HasProfile(name string) bool
}
