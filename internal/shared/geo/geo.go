package geo

import (
	"math"
	"time"
)

// EarthRadiusM is the mean Earth radius used for great-circle distances.
const EarthRadiusM = 6371000.0

// Position is a timestamped coordinate in degrees.
type Position struct {
	Lat float64
	Lng float64
	At  time.Time
}

// DistanceMeters returns the haversine distance between a and b.
func DistanceMeters(a, b Position) float64 {
	return haversine(a.Lat, a.Lng, b.Lat, b.Lng) * EarthRadiusM
}

// HaversineKm returns the great-circle distance in kilometres.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	return haversine(lat1, lng1, lat2, lng2) * EarthRadiusM / 1000
}

// SpeedKmh returns the average speed from a to b rounded to two decimals.
// ok is false when b is not strictly after a.
func SpeedKmh(a, b Position) (float64, bool) {
	elapsed := b.At.Sub(a.At).Seconds()
	if elapsed <= 0 {
		return 0, false
	}
	kmh := DistanceMeters(a, b) / elapsed * 3.6
	return math.Round(kmh*100) / 100, true
}

// haversine returns the central angle in radians.
func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := radians(lat1)
	lat2Rad := radians(lat2)
	dLat := lat2Rad - lat1Rad
	dLng := radians(lng2) - radians(lng1)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
