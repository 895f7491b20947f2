package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"climatelens/pkg/config"
	"climatelens/pkg/llm"
	"climatelens/pkg/tracker"
)

const defaultModel = "gemini-2.5-flash-lite"

// Client implements llm.Provider for Google Gemini.
type Client struct {
	genaiClient *genai.Client
	apiKey      string
	baseURL     string
	modelName   string
	profiles    map[string]string // Map intent -> modelName
	tracker     *tracker.Tracker
	logPath     string

	mu sync.RWMutex
}

// NewClient creates a new Gemini client. An empty key yields a client whose
// calls fail with llm.ErrNotConfigured.
func NewClient(cfg config.LLMConfig, logPath string, t *tracker.Tracker) (*Client, error) {
	c := &Client{tracker: t, logPath: logPath}
	if err := c.Configure(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Configure updates the client with new settings.
func (c *Client) Configure(cfg config.LLMConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.apiKey = cfg.Key
	c.baseURL = cfg.BaseURL
	c.modelName = cfg.Model
	c.profiles = cfg.Profiles

	if c.modelName == "" {
		c.modelName = defaultModel
	}

	if c.apiKey == "" {
		c.genaiClient = nil
		return nil
	}

	cc := &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return fmt.Errorf("failed to create genai client: %w", err)
	}
	c.genaiClient = client
	return nil
}

// Close cleans up resources.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.genaiClient = nil
}

// GenerateText sends a prompt and returns the text response.
func (c *Client) GenerateText(ctx context.Context, name, prompt string) (string, error) {
	c.mu.RLock()
	client := c.genaiClient
	modelName := c.resolveModel(name)
	c.mu.RUnlock()

	if client == nil {
		return "", llm.ErrNotConfigured
	}

	resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), &genai.GenerateContentConfig{})
	if err != nil {
		c.logPrompt(name, prompt, fmt.Sprintf("ERROR: %v", err))
		c.track(false)
		return "", fmt.Errorf("generate text error: %w", err)
	}

	text, err := getResponseText(resp)
	if err != nil {
		c.logPrompt(name, prompt, fmt.Sprintf("TEXT_PARSE_ERROR: %v", err))
		c.track(false)
		return "", err
	}

	c.logPrompt(name, prompt, text)
	c.track(true)
	return text, nil
}

// HealthCheck verifies that the configured model is reachable with the key.
func (c *Client) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	client := c.genaiClient
	c.mu.RUnlock()

	if client == nil {
		return llm.ErrNotConfigured
	}
	return c.validateModel(ctx, client)
}

// HasProfile checks if a model is configured for the intent.
func (c *Client) HasProfile(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.profiles[name]
	return ok && m != ""
}

// resolveModel returns the model for an intent. Callers hold c.mu.
func (c *Client) resolveModel(intent string) string {
	if m, ok := c.profiles[intent]; ok && m != "" {
		return m
	}
	return c.modelName
}

func (c *Client) track(ok bool) {
	if c.tracker == nil {
		return
	}
	if ok {
		c.tracker.TrackAPISuccess("gemini")
	} else {
		c.tracker.TrackAPIFailure("gemini")
	}
}

func (c *Client) logPrompt(name, prompt, response string) {
	if c.logPath == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return
	}

	f, err := os.OpenFile(c.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	entry := fmt.Sprintf("[%s] PROMPT: %s\nPROMPT_TEXT:\n%s\n\nRESPONSE:\n%s\n%s\n",
		timestamp, name, llm.TruncateLines(prompt, 200), llm.WordWrap(response, 80), strings.Repeat("-", 80))

	_, _ = f.WriteString(entry)
}

func getResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("candidate has no content (finish reason %q)", cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("empty response text")
	}
	return sb.String(), nil
}

// validateModel checks if the configured model is available for the API key.
// On failure it lists the gemini models the key can use.
func (c *Client) validateModel(ctx context.Context, client *genai.Client) error {
	c.mu.RLock()
	name := c.modelName
	c.mu.RUnlock()
	if !strings.HasPrefix(name, "models/") {
		name = "models/" + name
	}

	_, err := client.Models.Get(ctx, name, nil)
	if err == nil {
		slog.Debug("Gemini model validation success", "model", name)
		return nil
	}

	var available []string
	for m, listErr := range client.Models.All(ctx) {
		if listErr != nil {
			break
		}
		if strings.Contains(strings.ToLower(m.Name), "gemini") {
			available = append(available, m.Name)
		}
	}
	if len(available) > 0 {
		slog.Warn("Configured Gemini model not found", "configured", name, "available", strings.Join(available, ", "))
	}
	return fmt.Errorf("model %s unavailable: %w", name, err)
}
