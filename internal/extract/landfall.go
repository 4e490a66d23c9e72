package extract

// The landfall search is restricted to the northern Gulf coast box the
// training meshes cover.
const (
	gulfLatMin = 24
	gulfLatMax = 31
	gulfLonMin = -98
	gulfLonMax = -88
)

// landfall scans the best track for the first sea-to-land transition
// inside the Gulf box, then refines the crossing by interpolating the
// track segment against the land mask. It returns the landfall time in
// hours since simulation start and the landfall coordinate; ok is false
// when the track never makes a qualifying landfall.
func landfall(lats, lons, hours []float64, mask LandMask) (t float64, coord [2]float64, ok bool) {
	crossing := -1
	wasLand := false
	for i := range lats {
		isLand := mask.IsLand(lats[i], lons[i])
		if !wasLand && isLand && i > 0 &&
			gulfLatMin < lats[i] && lats[i] < gulfLatMax &&
			gulfLonMin < lons[i] && lons[i] < gulfLonMax {
			crossing = i
			break
		}
		wasLand = isLand
	}
	if crossing < 1 {
		return 0, coord, false
	}

	// The track samples bracket the coastline; walk the segment in 100
	// steps and take the first interpolated point that is on land.
	const steps = 100
	for s := 0; s < steps; s++ {
		lambda := float64(s) / float64(steps-1)
		lat := (1-lambda)*lats[crossing-1] + lambda*lats[crossing]
		lon := (1-lambda)*lons[crossing-1] + lambda*lons[crossing]
		if mask.IsLand(lat, lon) {
			t = (1-lambda)*hours[crossing-1] + lambda*hours[crossing]
			return t, [2]float64{lat, lon}, true
		}
	}
	return 0, coord, false
}
