package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinates_Validate(t *testing.T) {
	tests := []struct {
		name    string
		c       Coordinates
		wantErr bool
	}{
		{"Kathmandu", Coordinates{27.7172, 85.3240}, false},
		{"Poles and antimeridian", Coordinates{-90, 180}, false},
		{"Latitude too high", Coordinates{90.1, 0}, true},
		{"Longitude too low", Coordinates{0, -180.5}, true},
		{"NaN latitude", Coordinates{math.NaN(), 85.3}, true},
		{"Infinite longitude", Coordinates{27.7, math.Inf(1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCoordinates)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLanguage(t *testing.T) {
	l, err := ParseLanguage("")
	require.NoError(t, err)
	assert.Equal(t, LanguageEnglish, l)

	l, err = ParseLanguage(" Nepali ")
	require.NoError(t, err)
	assert.Equal(t, LanguageNepali, l)

	_, err = ParseLanguage("klingon")
	assert.Error(t, err)
}

func TestUnknownPlace(t *testing.T) {
	p := UnknownPlace()
	assert.True(t, p.IsSentinel())
	assert.Equal(t, "Unknown City, Unknown Country", p.Address())
	assert.False(t, PlaceDescriptor{City: "Kathmandu", Country: "NP"}.IsSentinel())
}

func TestStoryLocation_JSON(t *testing.T) {
	loc := NewStoryLocation(Coordinates{Latitude: 27.7172, Longitude: 85.3240}, PlaceDescriptor{City: "Kathmandu", Country: "NP"})

	data, err := json.Marshal(loc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Point","coordinates":[85.324,27.7172],"address":"Kathmandu, NP"}`, string(data))

	var back StoryLocation
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, loc, back)
	assert.InDelta(t, 27.7172, back.Coordinates().Latitude, 1e-9)

	assert.Error(t, json.Unmarshal([]byte(`{"type":"Polygon","coordinates":[0,0]}`), &back))
	assert.Error(t, json.Unmarshal([]byte(`{"type":"Feature","coordinates":[0,0]}`), &back))

	var untyped StoryLocation
	require.NoError(t, json.Unmarshal([]byte(`{"coordinates":[83.9856,28.2096],"address":"Pokhara, NP"}`), &untyped))
	assert.InDelta(t, 28.2096, untyped.Coordinates().Latitude, 1e-9)
	assert.Equal(t, "Pokhara, NP", untyped.Address)
}

func TestNewGeneratedStory(t *testing.T) {
	res := NarrativeResult{Text: "A story", Language: LanguageEnglish, Source: SourceGenerated}
	rec := NewGeneratedStory(res, Coordinates{Latitude: 1, Longitude: 2}, PlaceDescriptor{City: "Pokhara", Country: "NP"}, "u1")

	assert.Equal(t, "AI Generated Story - Pokhara", rec.Title)
	assert.Equal(t, ImpactOther, rec.ClimateImpact)
	assert.Equal(t, "AI Generated", rec.SubmittedBy)
	assert.True(t, rec.AIGenerated)
	assert.True(t, ValidImpact(rec.ClimateImpact))
	assert.False(t, ValidImpact("meteor"))
}
