package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"climatelens/pkg/model"
	"climatelens/pkg/request"
)

// GenerateAIPath is the story backend endpoint.
const GenerateAIPath = "/api/stories/generate-ai"

// GenerateAIResponse is the success body of the story backend.
type GenerateAIResponse struct {
	Story string `json:"story"`
}

// RemoteGenerator asks a story backend over authenticated HTTP.
type RemoteGenerator struct {
	rc      *request.Client
	baseURL string
	token   string
}

// NewRemoteGenerator creates a generator posting to baseURL + GenerateAIPath.
func NewRemoteGenerator(rc *request.Client, baseURL, token string) *RemoteGenerator {
	return &RemoteGenerator{
		rc:      rc,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
	}
}

// Generate implements Generator.
func (g *RemoteGenerator) Generate(ctx context.Context, req model.NarrativeRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: marshal: %w", ErrGenerationFailed, err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if g.token != "" {
		headers["Authorization"] = "Bearer " + g.token
	}

	respBody, err := g.rc.PostWithHeaders(ctx, g.baseURL+GenerateAIPath, body, headers)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	var resp GenerateAIResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("%w: decode: %w", ErrGenerationFailed, err)
	}
	story := strings.TrimSpace(resp.Story)
	if story == "" {
		return "", fmt.Errorf("%w: missing story", ErrGenerationFailed)
	}
	return story, nil
}
