package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatelens/pkg/model"
	"climatelens/pkg/observability"
	"climatelens/pkg/playback"
	"climatelens/pkg/tracker"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	p := newTestPipeline(&stubGenerator{text: "story"})
	m := observability.NewMetricsForTesting()
	stories, _ := setupStories(t)
	h := Handlers{
		Stats:      NewStatsHandler(tracker.New()),
		Story:      NewStoryHandler(p, &recordingPersister{}, nil, m, ""),
		Playback:   NewPlaybackHandler(playback.NewController(&fakeDevice{}, m), p),
		Stories:    stories,
		GenerateAI: NewGenerateAIHandler(&stubGenerator{text: "x"}, "tok"),
		Metrics:    m.Handler(),
	}
	srv := httptest.NewServer(NewServer("", h, []string{"http://localhost:3000"}, nil).Handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/version", "", http.StatusOK},
		{http.MethodGet, "/api/languages", "", http.StatusOK},
		{http.MethodGet, "/api/stats", "", http.StatusOK},
		{http.MethodGet, "/api/log/latest", "", http.StatusOK},
		{http.MethodGet, "/api/story/status", "", http.StatusOK},
		{http.MethodPost, "/api/story/generate", `{"latitude":27.7,"longitude":85.3}`, http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/api/playback/stop", "", http.StatusOK},
		{http.MethodGet, "/api/stories", "", http.StatusOK},
		{http.MethodPost, "/api/stories/generate-ai", `{"language":"english"}`, http.StatusUnauthorized},
		{http.MethodGet, "/api/story/generate", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/unknown", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestServer_CORS(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/story/generate", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestHandleLanguages(t *testing.T) {
	rec := doJSON(t, handleLanguages, http.MethodGet, "/api/languages", nil)
	infos := decode[[]model.LanguageInfo](t, rec)
	require.Len(t, infos, 3)
	assert.Equal(t, "en", infos[0].Code)
}
