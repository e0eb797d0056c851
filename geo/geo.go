package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

const EarthRadiusKm = 6371.0

// Point is a position on a flat canvas, origin top-left.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vector is a position in globe space, Z pointing at the north pole.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// normalize clamps latitude and wraps longitude so out-of-range
// coordinates still land somewhere on the map.
func normalize(lat, lng float64) s2.LatLng {
	if math.IsNaN(lat) || math.IsInf(lat, 0) {
		lat = 0
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) {
		lng = 0
	}
	return s2.LatLngFromDegrees(lat, lng).Normalized()
}

// Project maps a coordinate onto a width x height canvas using the
// equirectangular projection.
func Project(lat, lng, width, height float64) Point {
	ll := normalize(lat, lng)
	return Point{
		X: (ll.Lng.Degrees() + 180) / 360 * width,
		Y: (90 - ll.Lat.Degrees()) / 180 * height,
	}
}

// Globe maps a coordinate onto a sphere of the given radius.
func Globe(lat, lng, radius float64) Vector {
	p := s2.PointFromLatLng(normalize(lat, lng))
	return Vector{X: p.X * radius, Y: p.Y * radius, Z: p.Z * radius}
}

// DistanceKm returns the great-circle distance between two coordinates.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	return normalize(lat1, lng1).Distance(normalize(lat2, lng2)).Radians() * EarthRadiusKm
}
