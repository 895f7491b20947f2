package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/uber/h3-go/v4"

	"climatelens/pkg/model"
)

// CacheResolution is the H3 resolution used for lookup cache keys
// (roughly 5 km² per cell, a neighbourhood).
const CacheResolution = 7

// ToPoint converts coordinates into an orb point (lon, lat order).
func ToPoint(c model.Coordinates) orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// FromPoint converts an orb point into coordinates.
func FromPoint(p orb.Point) model.Coordinates {
	return model.Coordinates{Latitude: p.Lat(), Longitude: p.Lon()}
}

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b model.Coordinates) float64 {
	return orbgeo.DistanceHaversine(ToPoint(a), ToPoint(b))
}

// BoundAround returns the bounding box of a circle with radius meters around c.
// Used to pre-filter stored stories before the exact distance check.
func BoundAround(c model.Coordinates, meters float64) orb.Bound {
	return orbgeo.NewBoundAroundPoint(ToPoint(c), meters)
}

// CellKey returns the H3 cell index of c at the given resolution as a hex string.
// Fixes inside the same cell share a key.
func CellKey(c model.Coordinates, res int) (string, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(c.Latitude, c.Longitude), res)
	if err != nil {
		return "", fmt.Errorf("h3 cell for %s: %w", c, err)
	}
	return cell.String(), nil
}
