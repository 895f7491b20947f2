// Package weather fetches current conditions for a position.
package weather

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

// ErrConditionsUnavailable is returned when no usable answer was received at all.
var ErrConditionsUnavailable = errors.New("conditions unavailable")

// Provider converts coordinates into a conditions snapshot.
type Provider interface {
	Fetch(ctx context.Context, c model.Coordinates) (model.ConditionsSnapshot, error)
}

// OpenWeather fetches current conditions from the OpenWeather API.
type OpenWeather struct {
	rc      *request.Client
	baseURL string
	key     string
	logger  *slog.Logger
}

// NewOpenWeather creates a provider against baseURL (e.g. https://api.openweathermap.org).
func NewOpenWeather(rc *request.Client, baseURL, key string) *OpenWeather {
	return &OpenWeather{
		rc:      rc,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		key:     key,
		logger:  slog.With("component", "weather"),
	}
}

// The fields used from /data/2.5/weather are main.temp, main.humidity,
// weather[0].description and wind.speed. Each leaf is decoded on its own so
// one mistyped field leaves its siblings intact.
type object map[string]json.RawMessage

func (o object) child(key string) object {
	var c object
	if raw, ok := o[key]; ok {
		_ = json.Unmarshal(raw, &c)
	}
	return c
}

// number reports a JSON number at key; absent, null or mistyped is false.
func (o object) number(key string) (float64, bool) {
	raw, ok := o[key]
	if !ok {
		return 0, false
	}
	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return 0, false
	}
	return *v, true
}

func (o object) firstDescription() string {
	raw, ok := o["weather"]
	if !ok {
		return ""
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
		return ""
	}
	var first object
	if err := json.Unmarshal(list[0], &first); err != nil {
		return ""
	}
	var d string
	if err := json.Unmarshal(first["description"], &d); err != nil {
		return ""
	}
	return strings.TrimSpace(d)
}

// Fetch performs one lookup. Each missing leaf field gets its default independently.
func (o *OpenWeather) Fetch(ctx context.Context, c model.Coordinates) (model.ConditionsSnapshot, error) {
	q := url.Values{
		"lat":   {fmt.Sprintf("%f", c.Latitude)},
		"lon":   {fmt.Sprintf("%f", c.Longitude)},
		"appid": {o.key},
		"units": {"metric"},
	}
	body, err := o.rc.Get(ctx, o.baseURL+"/data/2.5/weather?"+q.Encode())
	if err != nil {
		return model.ConditionsSnapshot{}, fmt.Errorf("%w: %w", ErrConditionsUnavailable, err)
	}

	snap, err := Decode(body)
	if err != nil {
		return model.ConditionsSnapshot{}, err
	}
	o.logger.Debug("Conditions fetched", "coords", c.String(), "temp", snap.TemperatureCelsius, "desc", snap.Description)
	return snap, nil
}

// Decode parses a current-conditions body, default-filling absent or
// mistyped fields. A body that is not a JSON object is ErrConditionsUnavailable.
func Decode(body []byte) (model.ConditionsSnapshot, error) {
	var resp object
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.ConditionsSnapshot{}, fmt.Errorf("%w: decode: %w", ErrConditionsUnavailable, err)
	}
	if resp == nil {
		return model.ConditionsSnapshot{}, fmt.Errorf("%w: decode: null body", ErrConditionsUnavailable)
	}

	snap := model.DefaultConditions()
	snap.Observed = true

	m := resp.child("main")
	if v, ok := m.number("temp"); ok {
		snap.TemperatureCelsius = v
	}
	if v, ok := m.number("humidity"); ok {
		snap.HumidityPercent = clampPercent(v)
	}
	if d := resp.firstDescription(); d != "" {
		snap.Description = d
	}
	if v, ok := resp.child("wind").number("speed"); ok {
		snap.WindSpeedMetersPerSecond = v
	}
	return snap, nil
}

func clampPercent(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(v + 0.5)
}
