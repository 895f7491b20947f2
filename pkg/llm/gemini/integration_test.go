package gemini_test

import (
	"context"
	"os"
	"testing"

	"climatelens/pkg/config"
	"climatelens/pkg/llm/gemini"
)

func TestIntegration_GenerateText(t *testing.T) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		t.Skip("Skipping integration test: GEMINI_API_KEY not set")
	}

	c, err := gemini.NewClient(config.LLMConfig{Key: key}, "", nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	out, err := c.GenerateText(context.Background(), "IntegrationTest", "Say 'pong'")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out == "" {
		t.Error("empty response")
	}
}
