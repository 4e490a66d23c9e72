package extract

import "math"

// earthRadius in kilometres, matching the value used when the reference
// coastal-distance fields were generated.
const earthRadius = 6731.0

// haversine returns the great-circle distance in kilometres between two
// points given in degrees.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dp := (lat2 - lat1) * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dp/2)*math.Sin(dp/2) +
		math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(a))
}
