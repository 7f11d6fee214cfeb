package utils

import (
	"math"
)

// HaversineDistance calculates the distance between two points on Earth
// using the Haversine formula. Returns distance in kilometers.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6371

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dlng/2)*math.Sin(dlng/2)

	return earthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// RoadDistance estimates a trip length from coordinates, rounded to 2
// decimals. Zero coordinates mean unknown.
func RoadDistance(pickupLat, pickupLng, dropLat, dropLng float64) float64 {
	if (pickupLat == 0 && pickupLng == 0) || (dropLat == 0 && dropLng == 0) {
		return 0
	}
	return math.Round(HaversineDistance(pickupLat, pickupLng, dropLat, dropLng)*100) / 100
}
