package api

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"climatelens/pkg/model"
	"climatelens/pkg/narrative"
	"climatelens/pkg/store"
)

// storyStore is what the stories endpoints need from the database.
type storyStore interface {
	store.StoryPersister
	store.StoryReader
}

// StoriesHandler serves user-submitted and saved stories.
type StoriesHandler struct {
	store       storyStore
	summarizer  *narrative.Summarizer
	maxRadiusKm float64
}

// NewStoriesHandler creates a handler. A nil summarizer stores truncated summaries.
func NewStoriesHandler(s storyStore, summarizer *narrative.Summarizer, maxRadiusKm float64) *StoriesHandler {
	if summarizer == nil {
		summarizer = narrative.NewSummarizer(nil, nil)
	}
	return &StoriesHandler{store: s, summarizer: summarizer, maxRadiusKm: maxRadiusKm}
}

// HandleList returns stories newest first. ?limit= caps the count.
func (h *StoriesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	stories, err := h.store.ListStories(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list stories", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch stories")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(stories))
}

// HandleNearby returns stories within {radius} km of {lng}/{lat}, nearest first.
func (h *StoriesHandler) HandleNearby(w http.ResponseWriter, r *http.Request) {
	lng, errLng := strconv.ParseFloat(r.PathValue("lng"), 64)
	lat, errLat := strconv.ParseFloat(r.PathValue("lat"), 64)
	radius, errRad := strconv.ParseFloat(r.PathValue("radius"), 64)
	if err := errors.Join(errLng, errLat, errRad); err != nil {
		writeError(w, http.StatusBadRequest, "invalid coordinates or radius")
		return
	}

	c := model.Coordinates{Latitude: lat, Longitude: lng}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius <= 0 {
		writeError(w, http.StatusBadRequest, "radius must be a positive number")
		return
	}
	if h.maxRadiusKm > 0 && radius > h.maxRadiusKm {
		radius = h.maxRadiusKm
	}

	stories, err := h.store.NearbyStories(r.Context(), c, radius*1000)
	if err != nil {
		slog.Error("Failed to fetch nearby stories", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch nearby stories")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(stories))
}

// HandleCreate stores a user-submitted story together with a short summary.
func (h *StoriesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var rec model.StoryRecord
	if err := decodeBody(w, r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec.ID = ""
	rec.AIGenerated = false
	if rec.ClimateImpact == "" {
		rec.ClimateImpact = model.ImpactOther
	}
	if err := store.Validate(rec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec.AISummary = h.summarizer.Summarize(r.Context(), rec.Content, rec.ClimateImpact, rec.Location.Address)

	id, err := h.store.SaveStory(r.Context(), rec)
	if err != nil {
		slog.Error("Failed to create story", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create story")
		return
	}
	rec.ID = id
	writeJSON(w, http.StatusCreated, rec)
}

func nonNil(s []model.StoryRecord) []model.StoryRecord {
	if s == nil {
		return []model.StoryRecord{}
	}
	return s
}
