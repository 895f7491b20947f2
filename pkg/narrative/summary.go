package narrative

import (
	"context"
	"log/slog"
	"strings"

	"climatelens/pkg/llm"
	"climatelens/pkg/llm/prompts"
)

// SummaryMaxWords bounds generated summaries.
const SummaryMaxWords = 100

// summaryFallbackChars is how much of the story is kept when summarizing fails.
const summaryFallbackChars = 100

// Summarizer writes short summaries of user-submitted stories.
type Summarizer struct {
	provider llm.Provider
	prompts  *prompts.Manager
}

// NewSummarizer creates a summarizer. A nil provider always truncates.
func NewSummarizer(provider llm.Provider, pm *prompts.Manager) *Summarizer {
	return &Summarizer{provider: provider, prompts: pm}
}

// Summarize returns a summary of content. It never fails: on any error the
// first characters of the story are used.
func (s *Summarizer) Summarize(ctx context.Context, content, impact, location string) string {
	if s.provider == nil || s.prompts == nil {
		return Truncate(content)
	}

	prompt, err := s.prompts.Render("summary/story.tmpl", map[string]any{
		"MaxWords": SummaryMaxWords,
		"Location": location,
		"Impact":   impact,
		"Content":  content,
	})
	if err != nil {
		slog.Warn("Summary prompt failed", "error", err)
		return Truncate(content)
	}

	out, err := s.provider.GenerateText(ctx, "summary", prompt)
	if err != nil {
		slog.Warn("Summary generation failed", "error", err)
		return Truncate(content)
	}
	out = llm.CleanText(out)
	if out == "" {
		return Truncate(content)
	}
	return limitWords(out, SummaryMaxWords)
}

// Truncate keeps the first 100 characters of content followed by "...".
func Truncate(content string) string {
	r := []rune(content)
	if len(r) > summaryFallbackChars {
		r = r[:summaryFallbackChars]
	}
	return string(r) + "..."
}

func limitWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ") + "..."
}
