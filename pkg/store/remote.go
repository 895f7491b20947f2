package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"climatelens/pkg/model"
	"climatelens/pkg/request"
)

// StoriesPath is the story collection endpoint of the backend.
const StoriesPath = "/api/stories"

// RemotePersister saves stories to the story backend over HTTP.
// Failures are returned to the caller and never retried.
type RemotePersister struct {
	rc      *request.Client
	baseURL string
	token   string
}

// NewRemotePersister creates a persister posting to {baseURL}/api/stories.
func NewRemotePersister(rc *request.Client, baseURL, token string) *RemotePersister {
	return &RemotePersister{rc: rc, baseURL: strings.TrimSuffix(baseURL, "/"), token: token}
}

type remoteSaveResponse struct {
	ID    string `json:"_id"`
	AltID string `json:"id"`
}

// SaveStory implements StoryPersister.
func (p *RemotePersister) SaveStory(ctx context.Context, rec model.StoryRecord) (string, error) {
	if err := Validate(rec); err != nil {
		return "", err
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode story: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if p.token != "" {
		headers["Authorization"] = "Bearer " + p.token
	}
	resp, err := p.rc.PostWithHeaders(ctx, p.baseURL+StoriesPath, body, headers)
	if err != nil {
		return "", fmt.Errorf("save story: %w", err)
	}

	var out remoteSaveResponse
	if err := json.Unmarshal(resp, &out); err != nil {
		return "", fmt.Errorf("decode save response: %w", err)
	}
	if out.ID != "" {
		return out.ID, nil
	}
	return out.AltID, nil
}
