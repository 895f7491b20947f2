package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/genai"

	"climatelens/pkg/config"
	"climatelens/pkg/llm"
	"climatelens/pkg/tracker"
)

func newTestServer(t *testing.T, text string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"models/test"}`))
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
			return
		}
		resp := map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"role":  "model",
						"parts": []any{map[string]any{"text": text}},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestGenerateText(t *testing.T) {
	srv := newTestServer(t, "Once upon a warming sky.", http.StatusOK)
	defer srv.Close()

	logPath := filepath.Join(t.TempDir(), "llm.log")
	tr := tracker.New()
	c, err := NewClient(config.LLMConfig{
		Key:      "test-key",
		Model:    "gemini-test",
		BaseURL:  srv.URL,
		Profiles: map[string]string{"story": "gemini-story"},
	}, logPath, tr)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	out, err := c.GenerateText(context.Background(), "story", "Tell a story")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out != "Once upon a warming sky." {
		t.Errorf("unexpected text %q", out)
	}
	if tr.Snapshot()["gemini"].APISuccess != 1 {
		t.Error("success not tracked")
	}

	logged, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("history log missing: %v", err)
	}
	if !strings.Contains(string(logged), "PROMPT: story") {
		t.Errorf("history log missing prompt entry: %s", logged)
	}
}

func TestGenerateText_ServerError(t *testing.T) {
	srv := newTestServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	tr := tracker.New()
	c, err := NewClient(config.LLMConfig{Key: "k", BaseURL: srv.URL}, "", tr)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.GenerateText(context.Background(), "story", "x"); err == nil {
		t.Fatal("expected error")
	}
	if tr.Snapshot()["gemini"].APIFailures != 1 {
		t.Error("failure not tracked")
	}
}

func TestGenerateText_NotConfigured(t *testing.T) {
	c, err := NewClient(config.LLMConfig{}, "", nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.GenerateText(context.Background(), "story", "x")
	if !errors.Is(err, llm.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if !errors.Is(c.HealthCheck(context.Background()), llm.ErrNotConfigured) {
		t.Error("HealthCheck should report missing key")
	}
}

func TestResolveModel(t *testing.T) {
	c := &Client{modelName: "base", profiles: map[string]string{"summary": "small", "empty": ""}}
	tests := map[string]string{
		"summary": "small",
		"empty":   "base",
		"story":   "base",
	}
	for intent, want := range tests {
		if got := c.resolveModel(intent); got != want {
			t.Errorf("resolveModel(%q) = %q, want %q", intent, got, want)
		}
	}
	if !c.HasProfile("summary") || c.HasProfile("empty") {
		t.Error("HasProfile mismatch")
	}
}

func TestGetResponseText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{name: "Nil", resp: nil, wantErr: true},
		{name: "NoCandidates", resp: &genai.GenerateContentResponse{}, wantErr: true},
		{
			name:    "NoContent",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}},
			wantErr: true,
		},
		{
			name: "MultiPart",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: "a"}, {Text: "b"}}},
			}}},
			want: "ab",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := getResponseText(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
