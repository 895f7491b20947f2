package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Climate impact categories accepted by the story store.
const (
	ImpactFlood    = "flood"
	ImpactDrought  = "drought"
	ImpactHeatwave = "heatwave"
	ImpactStorm    = "storm"
	ImpactWildfire = "wildfire"
	ImpactOther    = "other"
)

// ClimateImpacts lists the accepted impact categories.
var ClimateImpacts = []string{ImpactFlood, ImpactDrought, ImpactHeatwave, ImpactStorm, ImpactWildfire, ImpactOther}

// StoryLocation is a GeoJSON point with a display address.
// It marshals as {"type":"Point","coordinates":[lon,lat],"address":...}.
type StoryLocation struct {
	Point   orb.Point
	Address string
}

type storyLocationJSON struct {
	Type        string    `json:"type"`
	Coordinates orb.Point `json:"coordinates"`
	Address     string    `json:"address"`
}

// NewStoryLocation builds a location from coordinates and a place.
func NewStoryLocation(c Coordinates, p PlaceDescriptor) StoryLocation {
	return StoryLocation{
		Point:   orb.Point{c.Longitude, c.Latitude},
		Address: p.Address(),
	}
}

// Coordinates returns the point as latitude/longitude.
func (l StoryLocation) Coordinates() Coordinates {
	return Coordinates{Latitude: l.Point.Lat(), Longitude: l.Point.Lon()}
}

// MarshalJSON implements json.Marshaler.
func (l StoryLocation) MarshalJSON() ([]byte, error) {
	return json.Marshal(storyLocationJSON{Type: l.Point.GeoJSONType(), Coordinates: l.Point, Address: l.Address})
}

// UnmarshalJSON implements json.Unmarshaler. A missing type is read as a Point.
func (l *StoryLocation) UnmarshalJSON(data []byte) error {
	var raw storyLocationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.Address = raw.Address
	if raw.Type == "" {
		l.Point = raw.Coordinates
		return nil
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return fmt.Errorf("location geometry: %w", err)
	}
	p, ok := g.Coordinates.(orb.Point)
	if !ok {
		return fmt.Errorf("unsupported location type %q", raw.Type)
	}
	l.Point = p
	return nil
}

// StoryRecord is a story as handed to the persister.
type StoryRecord struct {
	ID            string        `json:"id,omitempty"`
	Title         string        `json:"title"`
	Content       string        `json:"content"`
	UserID        string        `json:"userId,omitempty"`
	Location      StoryLocation `json:"location"`
	ClimateImpact string        `json:"climateImpact"`
	AISummary     string        `json:"aiSummary,omitempty"`
	SubmittedBy   string        `json:"submittedBy"`
	AIGenerated   bool          `json:"aiGenerated"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// NewGeneratedStory builds the record saved when a user keeps a generated story.
func NewGeneratedStory(res NarrativeResult, c Coordinates, p PlaceDescriptor, userID string) StoryRecord {
	return StoryRecord{
		Title:         "AI Generated Story - " + p.City,
		Content:       res.Text,
		UserID:        userID,
		Location:      NewStoryLocation(c, p),
		ClimateImpact: ImpactOther,
		SubmittedBy:   "AI Generated",
		AIGenerated:   true,
	}
}

// ValidImpact reports whether s is an accepted climate impact.
func ValidImpact(s string) bool {
	for _, v := range ClimateImpacts {
		if v == s {
			return true
		}
	}
	return false
}
