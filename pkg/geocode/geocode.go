// Package geocode turns coordinates into a human-readable place name.
// Resolution never fails from the caller's perspective: every error path
// yields the sentinel place.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"climatelens/pkg/model"
	"climatelens/pkg/request"
)

// ErrNoResult is recorded when the upstream answered with an empty list.
var ErrNoResult = errors.New("reverse geocode returned no result")

// Resolution is the total result of a reverse geocode. Place is always usable.
// Resolved is false (and Err set) when Place is the sentinel.
type Resolution struct {
	Place    model.PlaceDescriptor
	Resolved bool
	Err      error
}

// Resolved wraps a successful lookup.
func Resolved(p model.PlaceDescriptor) Resolution {
	return Resolution{Place: p, Resolved: true}
}

// Unresolved returns the sentinel resolution for err.
func Unresolved(err error) Resolution {
	return Resolution{Place: model.UnknownPlace(), Err: err}
}

// Resolver converts coordinates into a place descriptor.
type Resolver interface {
	Resolve(ctx context.Context, c model.Coordinates) Resolution
}

// OpenWeather resolves places with the OpenWeather reverse geocoding API.
type OpenWeather struct {
	rc      *request.Client
	baseURL string
	key     string
	logger  *slog.Logger
}

// NewOpenWeather creates a resolver against baseURL (e.g. https://api.openweathermap.org).
func NewOpenWeather(rc *request.Client, baseURL, key string) *OpenWeather {
	return &OpenWeather{
		rc:      rc,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		key:     key,
		logger:  slog.With("component", "geocode"),
	}
}

type reverseEntry struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Resolve performs one lookup. Missing name or country fall back to their
// sentinel independently.
func (o *OpenWeather) Resolve(ctx context.Context, c model.Coordinates) Resolution {
	q := url.Values{
		"lat":   {fmt.Sprintf("%f", c.Latitude)},
		"lon":   {fmt.Sprintf("%f", c.Longitude)},
		"limit": {"1"},
		"appid": {o.key},
	}
	body, err := o.rc.Get(ctx, o.baseURL+"/geo/1.0/reverse?"+q.Encode())
	if err != nil {
		o.logger.Warn("Reverse geocode failed", "coords", c.String(), "error", err)
		return Unresolved(fmt.Errorf("reverse geocode: %w", err))
	}

	var entries []reverseEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		o.logger.Warn("Reverse geocode returned unexpected shape", "coords", c.String(), "error", err)
		return Unresolved(fmt.Errorf("reverse geocode decode: %w", err))
	}
	if len(entries) == 0 {
		o.rc.Tracker().TrackAPIZero("openweather")
		return Unresolved(ErrNoResult)
	}

	p := model.PlaceDescriptor{
		City:    strings.TrimSpace(entries[0].Name),
		Country: strings.TrimSpace(entries[0].Country),
	}
	if p.City == "" {
		p.City = model.UnknownCity
	}
	if p.Country == "" {
		p.Country = model.UnknownCountry
	}
	if p.IsSentinel() {
		return Resolution{Place: p, Err: ErrNoResult}
	}
	return Resolved(p)
}
