package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatelens/pkg/model"
	"climatelens/pkg/narrative"
	"climatelens/pkg/request"
	"climatelens/pkg/tracker"
)

func TestGenerateAIHandler(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		auth     string
		body     string
		gen      *stubGenerator
		wantCode int
		wantReq  *model.NarrativeRequest
	}{
		{
			name:     "Full Request",
			body:     `{"location":{"city":"Pokhara","country":"NP"},"weather":{"temperature":21.5,"description":"haze","humidity":40,"windSpeed":1.2},"language":"english"}`,
			gen:      &stubGenerator{text: "Haze over Phewa lake."},
			wantCode: http.StatusOK,
			wantReq: &model.NarrativeRequest{
				Place:      model.PlaceDescriptor{City: "Pokhara", Country: "NP"},
				Conditions: model.ConditionsSnapshot{TemperatureCelsius: 21.5, Description: "haze", HumidityPercent: 40, WindSpeedMetersPerSecond: 1.2, Observed: true},
				Language:   model.LanguageEnglish,
			},
		},
		{
			name:     "Missing Wind Speed Defaults",
			body:     `{"location":{"city":"Pokhara","country":"NP"},"weather":{"temperature":21.5,"description":"haze","humidity":40},"language":"hindi"}`,
			gen:      &stubGenerator{text: "धुंध"},
			wantCode: http.StatusOK,
			wantReq: &model.NarrativeRequest{
				Place:      model.PlaceDescriptor{City: "Pokhara", Country: "NP"},
				Conditions: model.ConditionsSnapshot{TemperatureCelsius: 21.5, Description: "haze", HumidityPercent: 40, WindSpeedMetersPerSecond: model.DefaultWindSpeed, Observed: true},
				Language:   model.LanguageHindi,
			},
		},
		{
			name:     "No Weather",
			body:     `{"location":{},"language":"nepali"}`,
			gen:      &stubGenerator{text: "कथा"},
			wantCode: http.StatusOK,
			wantReq: &model.NarrativeRequest{
				Place:      model.UnknownPlace(),
				Conditions: model.DefaultConditions(),
				Language:   model.LanguageNepali,
			},
		},
		{
			name:     "Generator Failure",
			body:     `{"location":{"city":"Pokhara","country":"NP"},"language":"english"}`,
			gen:      &stubGenerator{err: errors.New("quota")},
			wantCode: http.StatusInternalServerError,
		},
		{
			name:     "Bad Language",
			body:     `{"language":"latin"}`,
			gen:      &stubGenerator{},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "Missing Token",
			token:    "secret",
			body:     `{"language":"english"}`,
			gen:      &stubGenerator{text: "x"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "Wrong Token",
			token:    "secret",
			auth:     "Bearer guess",
			body:     `{"language":"english"}`,
			gen:      &stubGenerator{text: "x"},
			wantCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewGenerateAIHandler(tt.gen, tt.token)
			req := httptest.NewRequest(http.MethodPost, narrative.GenerateAIPath, strings.NewReader(tt.body))
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			h.Handle(rec, req)

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			switch {
			case tt.wantCode == http.StatusOK:
				assert.Equal(t, tt.gen.text, decode[narrative.GenerateAIResponse](t, rec).Story)
				assert.Equal(t, *tt.wantReq, tt.gen.lastRequest())
			default:
				assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
			}
		})
	}
}

// The remote generator and the endpoint agree on the wire format.
func TestGenerateAIHandler_RemoteGeneratorRoundTrip(t *testing.T) {
	gen := &stubGenerator{text: "Monsoon clouds gather over Kathmandu."}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+narrative.GenerateAIPath, NewGenerateAIHandler(gen, "tok").Handle)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	remote := narrative.NewRemoteGenerator(request.New(tracker.New(), 0, "test"), srv.URL, "tok")
	want := model.NarrativeRequest{
		Place:      model.PlaceDescriptor{City: "Kathmandu", Country: "NP"},
		Conditions: model.ConditionsSnapshot{TemperatureCelsius: 24, Description: "overcast clouds", HumidityPercent: 88, WindSpeedMetersPerSecond: 3.1, Observed: true},
		Language:   model.LanguageEnglish,
	}
	story, err := remote.Generate(t.Context(), want)
	require.NoError(t, err)
	assert.Equal(t, gen.text, story)
	assert.Equal(t, want, gen.lastRequest())

	bad := narrative.NewRemoteGenerator(request.New(tracker.New(), 0, "test"), srv.URL, "wrong")
	_, err = bad.Generate(t.Context(), want)
	assert.ErrorIs(t, err, narrative.ErrGenerationFailed)
}
