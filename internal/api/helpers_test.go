package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"climatelens/pkg/geo"
	"climatelens/pkg/geocode"
	"climatelens/pkg/model"
	"climatelens/pkg/pipeline"
)

var kathmandu = model.Coordinates{Latitude: 27.7172, Longitude: 85.3240}

type staticResolver struct{ place model.PlaceDescriptor }

func (s staticResolver) Resolve(context.Context, model.Coordinates) geocode.Resolution {
	return geocode.Resolved(s.place)
}

type staticConditions struct {
	cond model.ConditionsSnapshot
	err  error
}

func (s staticConditions) Fetch(context.Context, model.Coordinates) (model.ConditionsSnapshot, error) {
	return s.cond, s.err
}

type stubGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	last    model.NarrativeRequest
	release chan struct{}
}

func (g *stubGenerator) Generate(_ context.Context, req model.NarrativeRequest) (string, error) {
	g.mu.Lock()
	g.last = req
	release := g.release
	g.mu.Unlock()
	if release != nil {
		<-release
	}
	return g.text, g.err
}

func (g *stubGenerator) lastRequest() model.NarrativeRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// fakeDevice never finishes on its own.
type fakeDevice struct {
	mu      sync.Mutex
	spoken  []string
	tags    []string
	cancels int
	err     error
}

func (d *fakeDevice) Speak(_ context.Context, text, tag string, _ func(error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.spoken = append(d.spoken, text)
	d.tags = append(d.tags, tag)
	return nil
}

func (d *fakeDevice) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancels++
}

func newTestPipeline(g *stubGenerator) *pipeline.Orchestrator {
	return pipeline.New(pipeline.Options{
		Position:   geo.Unavailable{Reason: "test"},
		Resolver:   staticResolver{place: model.PlaceDescriptor{City: "Kathmandu", Country: "NP"}},
		Conditions: staticConditions{cond: model.ConditionsSnapshot{TemperatureCelsius: 18, Description: "light rain", HumidityPercent: 80, WindSpeedMetersPerSecond: 2, Observed: true}},
		Generator:  g,
	})
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
