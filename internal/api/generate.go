package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"climatelens/pkg/model"
	"climatelens/pkg/narrative"
)

// GenerateAIHandler is the server side of narrative.RemoteGenerator.
type GenerateAIHandler struct {
	generator narrative.Generator
	token     string
}

// NewGenerateAIHandler creates the handler. An empty token disables auth.
func NewGenerateAIHandler(g narrative.Generator, token string) *GenerateAIHandler {
	return &GenerateAIHandler{generator: g, token: token}
}

// generateAIRequest mirrors model.NarrativeRequest with every weather field
// optional, so absent fields can take their defaults.
type generateAIRequest struct {
	Location model.PlaceDescriptor `json:"location"`
	Weather  struct {
		Temperature *float64 `json:"temperature"`
		Description *string  `json:"description"`
		Humidity    *int     `json:"humidity"`
		WindSpeed   *float64 `json:"windSpeed"`
	} `json:"weather"`
	Language string `json:"language"`
}

func (req generateAIRequest) toRequest(lang model.Language) model.NarrativeRequest {
	cond := model.DefaultConditions()
	if t := req.Weather.Temperature; t != nil {
		cond.TemperatureCelsius = *t
		cond.Observed = true
	}
	if d := req.Weather.Description; d != nil && *d != "" {
		cond.Description = *d
		cond.Observed = true
	}
	if h := req.Weather.Humidity; h != nil {
		cond.HumidityPercent = *h
		cond.Observed = true
	}
	if ws := req.Weather.WindSpeed; ws != nil {
		cond.WindSpeedMetersPerSecond = *ws
		cond.Observed = true
	}

	place := req.Location
	if place.City == "" {
		place.City = model.UnknownCity
	}
	if place.Country == "" {
		place.Country = model.UnknownCountry
	}
	return model.NarrativeRequest{Place: place, Conditions: cond, Language: lang}
}

// Handle generates one story.
func (h *GenerateAIHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req generateAIRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lang, err := model.ParseLanguage(req.Language)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	story, err := h.generator.Generate(r.Context(), req.toRequest(lang))
	if err != nil {
		slog.Error("Error generating story", "language", lang, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate story")
		return
	}
	writeJSON(w, http.StatusOK, narrative.GenerateAIResponse{Story: story})
}

func (h *GenerateAIHandler) authorized(r *http.Request) bool {
	if h.token == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}
