// Package api serves the climatelens HTTP interface.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"climatelens/pkg/narrative"
	"climatelens/pkg/version"
)

// Handlers groups everything the server routes to. Nil handlers leave
// their endpoints unregistered.
type Handlers struct {
	Stats      *StatsHandler
	Story      *StoryHandler
	Playback   *PlaybackHandler
	Stories    *StoriesHandler
	GenerateAI *GenerateAIHandler
	Metrics    http.Handler
}

// NewServer creates and configures the HTTP server.
func NewServer(addr string, h Handlers, allowedOrigins []string, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)
	mux.HandleFunc("GET /api/languages", handleLanguages)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	if h.Stats != nil {
		mux.Handle("GET /api/stats", h.Stats)
	}
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}

	if h.Story != nil {
		mux.HandleFunc("POST /api/story/generate", h.Story.HandleGenerate)
		mux.HandleFunc("GET /api/story/status", h.Story.HandleStatus)
		mux.HandleFunc("POST /api/story/reset", h.Story.HandleReset)
		mux.HandleFunc("POST /api/story/save", h.Story.HandleSave)
		mux.HandleFunc("POST /api/story/close", h.Story.HandleClose)
	}

	if h.Playback != nil {
		mux.HandleFunc("POST /api/playback/toggle", h.Playback.HandleToggle)
		mux.HandleFunc("POST /api/playback/stop", h.Playback.HandleStop)
		mux.HandleFunc("GET /api/playback/status", h.Playback.HandleStatus)
		mux.HandleFunc("GET /api/playback/volume", h.Playback.HandleGetVolume)
		mux.HandleFunc("POST /api/playback/volume", h.Playback.HandleSetVolume)
	}

	if h.Stories != nil {
		mux.HandleFunc("GET /api/stories", h.Stories.HandleList)
		mux.HandleFunc("POST /api/stories", h.Stories.HandleCreate)
		mux.HandleFunc("GET /api/stories/nearby/{lng}/{lat}/{radius}", h.Stories.HandleNearby)
	}

	if h.GenerateAI != nil {
		mux.HandleFunc("POST /api/stories/generate-ai", h.GenerateAI.Handle)
	}

	if shutdown != nil {
		mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
			slog.Info("Graceful shutdown initiated via API")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("Shutting down...")); err != nil {
				slog.Error("Failed to write shutdown response", "error", err)
			}
			// Let the response flush first.
			go func() {
				time.Sleep(100 * time.Millisecond)
				shutdown()
			}()
		})
	}

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	})

	return &http.Server{
		Addr:        addr,
		Handler:     c.Handler(loggingMiddleware(mux)),
		ReadTimeout: 15 * time.Second,
		// Generation can take a while; the write timeout covers a whole pipeline run.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelDebug
		if rec.status >= 500 {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}

func handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, narrative.Infos())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody decodes an optional JSON body; an empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
