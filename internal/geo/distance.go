package geo

import "github.com/golang/geo/s2"

// EarthRadiusMeters is the mean Earth radius used for great-circle
// distances.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle (haversine) distance in meters
// between two coordinates. Any missing coordinate yields 0; the function
// never fails.
func Distance(lat1, lon1, lat2, lon2 *float64) float64 {
	if lat1 == nil || lon1 == nil || lat2 == nil || lon2 == nil {
		return 0
	}
	p1 := s2.LatLngFromDegrees(*lat1, *lon1)
	p2 := s2.LatLngFromDegrees(*lat2, *lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}
