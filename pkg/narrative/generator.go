package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"climatelens/pkg/llm"
	"climatelens/pkg/llm/prompts"
	"climatelens/pkg/model"
)

// Generator produces a story for a request. Single attempt, no retries.
// Every failure is reported as ErrGenerationFailed.
type Generator interface {
	Generate(ctx context.Context, req model.NarrativeRequest) (string, error)
}

// promptData is what the story templates see.
type promptData struct {
	City        string
	Country     string
	Temperature float64
	Description string
	Humidity    int
	WindSpeed   float64
}

func newPromptData(req model.NarrativeRequest) promptData {
	return promptData{
		City:        req.Place.City,
		Country:     req.Place.Country,
		Temperature: req.Conditions.TemperatureCelsius,
		Description: req.Conditions.Description,
		Humidity:    req.Conditions.HumidityPercent,
		WindSpeed:   req.Conditions.WindSpeedMetersPerSecond,
	}
}

// LLMGenerator renders the language's prompt and asks an LLM provider.
type LLMGenerator struct {
	provider llm.Provider
	prompts  *prompts.Manager
	logger   *slog.Logger
}

// NewLLMGenerator creates a generator over provider.
func NewLLMGenerator(provider llm.Provider, pm *prompts.Manager) *LLMGenerator {
	return &LLMGenerator{
		provider: provider,
		prompts:  pm,
		logger:   slog.With("component", "narrative"),
	}
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, req model.NarrativeRequest) (string, error) {
	p, err := Lookup(req.Language)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	prompt, err := g.prompts.Render(p.PromptTemplate, newPromptData(req))
	if err != nil {
		return "", fmt.Errorf("%w: render prompt: %w", ErrGenerationFailed, err)
	}

	raw, err := g.provider.GenerateText(ctx, "story", prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	text := llm.CleanText(raw)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	// Localized stories must come back in their script; mixed answers are dropped.
	if share := ScriptPurity(text, req.Language); share < minScriptShare {
		g.logger.Warn("Generated story mixes scripts", "language", req.Language, "script_share", fmt.Sprintf("%.2f", share))
		return "", fmt.Errorf("%w: response not in %s script (%.0f%%)", ErrGenerationFailed, p.Info.Name, share*100)
	}

	g.logger.Info("Story generated", "language", req.Language, "city", req.Place.City, "words", len(strings.Fields(text)))
	return text, nil
}
