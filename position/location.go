// Package position holds the location of a GNSS receiver.
package position

import (
	"fmt"
	"math"
)

// earthRadiusMetres is the mean radius of the Earth.
const earthRadiusMetres = 6371008.8

// Location is a position on the Earth in decimal degrees and an elevation
// in metres.  South latitudes and west longitudes are negative.
type Location struct {
	Latitude  float64
	Longitude float64
	Elevation float64
}

// New creates a Location.
func New(latitude, longitude, elevation float64) Location {
	return Location{Latitude: latitude, Longitude: longitude, Elevation: elevation}
}

// DistanceTo returns the great circle distance in metres from this
// location to the other one, ignoring elevation.
func (l Location) DistanceTo(other Location) float64 {
	lat1 := radians(l.Latitude)
	lat2 := radians(other.Latitude)
	dLat := lat2 - lat1
	dLon := radians(other.Longitude - l.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMetres * math.Asin(math.Min(1, math.Sqrt(a)))
}

// String displays the location.
func (l Location) String() string {
	return fmt.Sprintf("%.6f %.6f %.2f", l.Latitude, l.Longitude, l.Elevation)
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
