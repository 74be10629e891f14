package utils

import (
	"errors"
	"math"
)

const earthRadius = 6371000 // meters

// ErrOutsideGeofence is returned when a location lies beyond the allowed radius.
var ErrOutsideGeofence = errors.New("location is outside the workplace area")

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// CalculateHaversineDistance returns the great-circle distance between two points in meters.
func CalculateHaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * (math.Pi / 180.0)
	dLon := (lon2 - lon1) * (math.Pi / 180.0)

	lat1Rad := lat1 * (math.Pi / 180.0)
	lat2Rad := lat2 * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// DistanceMeters is CalculateHaversineDistance over Coordinates.
func DistanceMeters(origin, target Coordinate) float64 {
	return CalculateHaversineDistance(origin.Latitude, origin.Longitude, target.Latitude, target.Longitude)
}

// AssertWithinGeofence accepts locations whose distance to center is at most radiusMeters.
func AssertWithinGeofence(location, center Coordinate, radiusMeters float64) error {
	if DistanceMeters(center, location) > radiusMeters {
		return ErrOutsideGeofence
	}
	return nil
}
