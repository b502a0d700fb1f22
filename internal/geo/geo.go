// Package geo computes great-circle distances between classroom and student
// coordinates.
package geo

import "math"

// EarthRadiusMeters is the mean earth radius used by the spherical model.
const EarthRadiusMeters = 6371000.0

// Point is a coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether p is finite and within latitude/longitude ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// DistanceMeters returns the haversine distance between a and b.
// Inputs are not range-checked.
func DistanceMeters(a, b Point) float64 {
	φ1 := a.Lat * math.Pi / 180
	φ2 := b.Lat * math.Pi / 180
	Δφ := (b.Lat - a.Lat) * math.Pi / 180
	Δλ := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// WithinRadius reports whether distance is inside the threshold. The boundary is inclusive.
func WithinRadius(distance, threshold float64) bool {
	return distance <= threshold
}

// Round2 rounds meters to centimetre precision, the precision distances are stored and shown with.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
