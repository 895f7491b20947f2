package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"climatelens/pkg/config"
	"climatelens/pkg/llm"
	"climatelens/pkg/request"
)

// Client implements llm.Provider for any OpenAI-compatible API
// (Groq, OpenRouter, a local llama.cpp server).
type Client struct {
	rc       *request.Client
	apiKey   string
	baseURL  string
	model    string
	profiles map[string]string

	mu sync.RWMutex
}

// Request follows the standard OpenAI Chat Completions format.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response follows the standard Chat Completions response format.
type Response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewClient creates a new OpenAI-compatible client.
func NewClient(cfg config.LLMConfig, rc *request.Client) (*Client, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}

	return &Client{
		baseURL:  baseURL,
		apiKey:   cfg.Key,
		model:    cfg.Model,
		profiles: cfg.Profiles,
		rc:       rc,
	}, nil
}

// GenerateText implements llm.Provider.
func (c *Client) GenerateText(ctx context.Context, name, prompt string) (string, error) {
	model, err := c.resolveModel(name)
	if err != nil {
		return "", err
	}

	return c.Execute(ctx, Request{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: 0.8,
	})
}

// HealthCheck sends a minimal completion to verify key and endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	model, err := c.resolveModel("")
	if err != nil {
		return err
	}
	_, err = c.Execute(ctx, Request{
		Model:    model,
		Messages: []Message{{Role: "user", Content: "ping"}},
	})
	return err
}

// Execute posts a chat completion request and returns the first choice.
func (c *Client) Execute(ctx context.Context, oreq Request) (string, error) {
	if c.apiKey == "" {
		return "", llm.ErrNotConfigured
	}

	body, err := json.Marshal(oreq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"Content-Type":  "application/json",
	}

	respBody, err := c.rc.PostWithHeaders(ctx, c.baseURL+"/chat/completions", body, headers)
	if err != nil {
		var se *request.StatusError
		if errors.As(err, &se) {
			if msg := errorMessage([]byte(se.Body)); msg != "" {
				return "", fmt.Errorf("openai api error (status %d): %s", se.Code, msg)
			}
		}
		return "", err
	}

	var oresp Response
	if err := json.Unmarshal(respBody, &oresp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	// Some proxies answer 200 with an error body
	if oresp.Error != nil {
		return "", fmt.Errorf("openai api error: %s (%s)", oresp.Error.Message, oresp.Error.Type)
	}

	if len(oresp.Choices) == 0 {
		return "", fmt.Errorf("api returned no choices")
	}

	return oresp.Choices[0].Message.Content, nil
}

func errorMessage(body []byte) string {
	var oresp Response
	if json.Unmarshal(body, &oresp) != nil || oresp.Error == nil {
		return ""
	}
	return oresp.Error.Message
}

func (c *Client) HasProfile(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.profiles[name]
	return ok && m != ""
}

func (c *Client) resolveModel(intent string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if model, ok := c.profiles[intent]; ok && model != "" {
		return model, nil
	}
	if c.model != "" {
		return c.model, nil
	}
	return "", fmt.Errorf("no model configured for %q", intent)
}
