package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"climatelens/pkg/geo"
	"climatelens/pkg/model"
	"climatelens/pkg/observability"
	"climatelens/pkg/pipeline"
	"climatelens/pkg/playback"
	"climatelens/pkg/store"
)

// StoryHandler drives the story pipeline for the hosting view.
type StoryHandler struct {
	pipeline    *pipeline.Orchestrator
	persister   store.StoryPersister
	playback    *playback.Controller
	metrics     *observability.Metrics
	defaultLang model.Language
}

// NewStoryHandler creates a handler. playback and metrics may be nil.
func NewStoryHandler(p *pipeline.Orchestrator, persister store.StoryPersister, pb *playback.Controller, m *observability.Metrics, defaultLang model.Language) *StoryHandler {
	if defaultLang == "" {
		defaultLang = model.LanguageEnglish
	}
	return &StoryHandler{
		pipeline:    p,
		persister:   persister,
		playback:    pb,
		metrics:     m,
		defaultLang: defaultLang,
	}
}

// GenerateRequest starts a run. Coordinates are optional; without them the
// configured position source is asked.
type GenerateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Language  string   `json:"language"`
}

// HandleGenerate runs the pipeline to completion and returns its final status.
func (h *StoryHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lang := h.defaultLang
	if req.Language != "" {
		l, err := model.ParseLanguage(req.Language)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		lang = l
	}

	var src geo.Source
	switch {
	case req.Latitude != nil && req.Longitude != nil:
		src = geo.Fixed{Latitude: *req.Latitude, Longitude: *req.Longitude}
	case req.Latitude != nil || req.Longitude != nil:
		writeError(w, http.StatusBadRequest, "latitude and longitude must be given together")
		return
	}

	// The run outlives a dropped connection; the view abandons it via close.
	if _, err := h.pipeline.Run(context.WithoutCancel(r.Context()), src, lang); err != nil {
		if errors.Is(err, pipeline.ErrBusy) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.pipeline.Status())
}

// HandleStatus returns the pipeline status and progress log.
func (h *StoryHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.Status())
}

// HandleReset returns a finished pipeline to idle.
func (h *StoryHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.pipeline.Reset(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.pipeline.Status())
}

// HandleClose is called when the hosting view goes away: playback stops and
// any run in flight is abandoned.
func (h *StoryHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	if h.playback != nil {
		h.playback.Stop()
	}
	h.pipeline.Abandon()
	w.WriteHeader(http.StatusNoContent)
}

// SaveRequest carries the owner of the saved story.
type SaveRequest struct {
	UserID string `json:"userId"`
}

// SaveResponse acknowledges a saved story.
type SaveResponse struct {
	ID string `json:"id"`
}

// HandleSave hands the finished story to the persister.
func (h *StoryHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, ok := h.pipeline.Result()
	if !ok {
		writeError(w, http.StatusConflict, "no finished story to save")
		return
	}
	if st.Coordinates == nil {
		writeError(w, http.StatusUnprocessableEntity, "story has no location")
		return
	}
	place := model.UnknownPlace()
	if st.Place != nil {
		place = *st.Place
	}

	rec := model.NewGeneratedStory(*st.Result, *st.Coordinates, place, req.UserID)
	id, err := h.persister.SaveStory(r.Context(), rec)
	if err != nil {
		h.countSave("error")
		slog.Warn("Failed to save story", "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, store.ErrInvalidStory) {
			status = http.StatusBadRequest
		}
		writeError(w, status, "Failed to save story")
		return
	}

	h.countSave("success")
	slog.Info("Story saved", "id", id, "city", place.City)
	writeJSON(w, http.StatusCreated, SaveResponse{ID: id})
}

func (h *StoryHandler) countSave(outcome string) {
	if h.metrics != nil {
		h.metrics.StoriesSaved.WithLabelValues(outcome).Inc()
	}
}
