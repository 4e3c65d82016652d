// Package geo provides the geodesic primitives behind the check-in geofence.
//
// Distances use the haversine formula over a spherical Earth; venue geofences
// are hundreds of meters wide, so ellipsoidal corrections are noise here.
package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the spherical model.
const earthRadiusMeters = 6371000.0

// Point is a WGS84 latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle distance between a and b in meters.
// It is symmetric and zero at identity.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// WithinRadius reports whether b lies within radiusMeters of a and returns
// the computed distance for caller-facing messages.
func WithinRadius(a, b Point, radiusMeters float64) (bool, float64) {
	d := Distance(a, b)
	return d <= radiusMeters, d
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
