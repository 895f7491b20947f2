package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCoordinates is returned when a latitude or longitude is out of range.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Coordinates is a geographic position in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinates are within the WGS84 range.
func (c Coordinates) Validate() error {
	if !finite(c.Latitude) || !finite(c.Longitude) {
		return fmt.Errorf("%w: non-finite coordinate", ErrInvalidCoordinates)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %f out of range", ErrInvalidCoordinates, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %f out of range", ErrInvalidCoordinates, c.Longitude)
	}
	return nil
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// Sentinel place names used when reverse geocoding fails.
const (
	UnknownCity    = "Unknown City"
	UnknownCountry = "Unknown Country"
)

// PlaceDescriptor is the human-readable name of a position.
type PlaceDescriptor struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// UnknownPlace returns the sentinel descriptor.
func UnknownPlace() PlaceDescriptor {
	return PlaceDescriptor{City: UnknownCity, Country: UnknownCountry}
}

// IsSentinel reports whether the city could not be resolved.
func (p PlaceDescriptor) IsSentinel() bool {
	return p.City == "" || p.City == UnknownCity
}

// Address formats the place as "City, Country".
func (p PlaceDescriptor) Address() string {
	return p.City + ", " + p.Country
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
