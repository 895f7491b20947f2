package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"climatelens/pkg/model"
	"climatelens/pkg/request"
)

// ErrLocationUnavailable is returned when no position fix can be obtained:
// permission denied, no positioning capability, or the timeout elapsed.
var ErrLocationUnavailable = errors.New("location unavailable")

// DefaultTimeout bounds a single position fix.
const DefaultTimeout = 10 * time.Second

// Source obtains the caller's current coordinates. Single attempt, no retries.
type Source interface {
	CurrentCoordinates(ctx context.Context) (model.Coordinates, error)
}

// Fixed is a position that was already determined by the caller,
// e.g. a browser geolocation fix posted with the request or CLI flags.
type Fixed model.Coordinates

// CurrentCoordinates returns the fixed position, validated.
func (f Fixed) CurrentCoordinates(ctx context.Context) (model.Coordinates, error) {
	c := model.Coordinates(f)
	if err := c.Validate(); err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, err)
	}
	return c, nil
}

// Unavailable is a source for hosts without positioning capability.
type Unavailable struct {
	Reason string
}

// CurrentCoordinates always fails.
func (u Unavailable) CurrentCoordinates(ctx context.Context) (model.Coordinates, error) {
	if u.Reason == "" {
		return model.Coordinates{}, ErrLocationUnavailable
	}
	return model.Coordinates{}, fmt.Errorf("%w: %s", ErrLocationUnavailable, u.Reason)
}

// timeoutSource bounds the wrapped source.
type timeoutSource struct {
	src     Source
	timeout time.Duration
}

// WithTimeout bounds every fix of src by d. A non-positive d uses DefaultTimeout.
// Any failure of the wrapped source, including the timeout, is reported as
// ErrLocationUnavailable.
func WithTimeout(src Source, d time.Duration) Source {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &timeoutSource{src: src, timeout: d}
}

func (t *timeoutSource) CurrentCoordinates(ctx context.Context) (model.Coordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type fix struct {
		c   model.Coordinates
		err error
	}
	ch := make(chan fix, 1)
	go func() {
		c, err := t.src.CurrentCoordinates(ctx)
		ch <- fix{c, err}
	}()

	select {
	case <-ctx.Done():
		return model.Coordinates{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, ctx.Err())
	case f := <-ch:
		if f.err != nil {
			if errors.Is(f.err, ErrLocationUnavailable) {
				return model.Coordinates{}, f.err
			}
			return model.Coordinates{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, f.err)
		}
		if err := f.c.Validate(); err != nil {
			return model.Coordinates{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, err)
		}
		return f.c, nil
	}
}

// IPLocator approximates the position from the host's public IP address
// (ip-api.com compatible JSON).
type IPLocator struct {
	rc  *request.Client
	url string
}

// NewIPLocator creates a locator querying url.
func NewIPLocator(rc *request.Client, url string) *IPLocator {
	return &IPLocator{rc: rc, url: url}
}

type ipAPIResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	City    string   `json:"city"`
}

// CurrentCoordinates performs one lookup.
func (l *IPLocator) CurrentCoordinates(ctx context.Context) (model.Coordinates, error) {
	body, err := l.rc.Get(ctx, l.url)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: ip lookup: %w", ErrLocationUnavailable, err)
	}

	var resp ipAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: ip lookup: %w", ErrLocationUnavailable, err)
	}
	if resp.Status == "fail" || resp.Lat == nil || resp.Lon == nil {
		return model.Coordinates{}, fmt.Errorf("%w: ip lookup returned no position %s", ErrLocationUnavailable, resp.Message)
	}

	c := model.Coordinates{Latitude: *resp.Lat, Longitude: *resp.Lon}
	slog.Debug("IP position fix", "coords", c.String(), "city", resp.City)
	return c, nil
}
