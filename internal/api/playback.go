package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"climatelens/pkg/model"
	"climatelens/pkg/pipeline"
	"climatelens/pkg/playback"
	"climatelens/pkg/store"
)

// VolumeControl is the output volume of the speech player.
type VolumeControl interface {
	SetVolume(vol float64)
	Volume() float64
}

// PlaybackHandler exposes the single play/stop control.
type PlaybackHandler struct {
	controller *playback.Controller
	pipeline   *pipeline.Orchestrator
	volume     VolumeControl
	state      store.StateStore
}

func NewPlaybackHandler(c *playback.Controller, p *pipeline.Orchestrator) *PlaybackHandler {
	return &PlaybackHandler{controller: c, pipeline: p}
}

// WithVolume enables the volume endpoints; changes are persisted to st.
func (h *PlaybackHandler) WithVolume(v VolumeControl, st store.StateStore) *PlaybackHandler {
	h.volume = v
	h.state = st
	return h
}

// PlaybackStatus is the playback session plus the error that ended the last one.
type PlaybackStatus struct {
	model.PlaybackSession
	Error string `json:"error,omitempty"`
}

// ToggleRequest optionally names the text to speak; the current story is
// used otherwise.
type ToggleRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// HandleToggle starts the story or stops it when it is already playing.
func (h *PlaybackHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, lang := req.Text, model.Language("")
	if req.Language != "" {
		l, err := model.ParseLanguage(req.Language)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		lang = l
	}
	if text == "" {
		if st, ok := h.pipeline.Result(); ok {
			text = st.Result.Text
			if lang == "" {
				lang = st.Result.Language
			}
		}
	}
	if lang == "" {
		lang = model.LanguageEnglish
	}

	_, err := h.controller.Toggle(r.Context(), text, lang)
	switch {
	case errors.Is(err, playback.ErrEmptyText):
		writeError(w, http.StatusConflict, "no story to play")
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, "Speech output unavailable")
		return
	}
	h.HandleStatus(w, r)
}

// HandleStop stops playback. Stopping while idle is fine.
func (h *PlaybackHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.controller.Stop()
	h.HandleStatus(w, r)
}

func (h *PlaybackHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := PlaybackStatus{PlaybackSession: h.controller.Status()}
	if err := h.controller.LastError(); err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// VolumeRequest sets the volume (0.0 to 1.0).
type VolumeRequest struct {
	Volume float64 `json:"volume"`
}

func (h *PlaybackHandler) HandleGetVolume(w http.ResponseWriter, r *http.Request) {
	if h.volume == nil {
		writeError(w, http.StatusNotFound, "speech output disabled")
		return
	}
	writeJSON(w, http.StatusOK, VolumeRequest{Volume: h.volume.Volume()})
}

func (h *PlaybackHandler) HandleSetVolume(w http.ResponseWriter, r *http.Request) {
	if h.volume == nil {
		writeError(w, http.StatusNotFound, "speech output disabled")
		return
	}
	var req VolumeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.volume.SetVolume(req.Volume)
	vol := h.volume.Volume()
	if h.state != nil {
		if err := h.state.SetState(r.Context(), store.StateVolume, strconv.FormatFloat(vol, 'f', 2, 64)); err != nil {
			slog.Warn("Failed to persist volume", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, VolumeRequest{Volume: vol})
}
