package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// readBestTrack parses a best_track.csv produced by the setup import:
// columns "Storm Latitude" and "Storm Longitude" are required; "Hours"
// (hours since simulation start) is optional and defaults to the row index.
func readBestTrack(path string) (lats, lons, hours []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open best track: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse best track %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, nil, nil, fmt.Errorf("best track %s has no data rows", path)
	}

	latCol, lonCol, hourCol := -1, -1, -1
	for i, name := range rows[0] {
		switch name {
		case "Storm Latitude":
			latCol = i
		case "Storm Longitude":
			lonCol = i
		case "Hours":
			hourCol = i
		}
	}
	if latCol < 0 || lonCol < 0 {
		return nil, nil, nil, fmt.Errorf("best track %s missing coordinate columns", path)
	}

	for n, row := range rows[1:] {
		lat, err := strconv.ParseFloat(row[latCol], 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("best track %s row %d: %w", path, n+1, err)
		}
		lon, err := strconv.ParseFloat(row[lonCol], 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("best track %s row %d: %w", path, n+1, err)
		}
		h := float64(n)
		if hourCol >= 0 {
			h, err = strconv.ParseFloat(row[hourCol], 64)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("best track %s row %d: %w", path, n+1, err)
			}
		}
		lats = append(lats, lat)
		lons = append(lons, lon)
		hours = append(hours, h)
	}
	return lats, lons, hours, nil
}
