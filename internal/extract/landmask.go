package extract

import (
	"fmt"
	"sort"

	adapter "github.com/couchcryptid/storm-ml-dataset/internal/adapter/hdf5"
)

// LandMask classifies a coordinate as land or open water. Landfall
// detection only needs a coarse answer; the production implementation is a
// gridded mask shipped with the data directory.
type LandMask interface {
	IsLand(lat, lon float64) bool
}

// LandMaskFunc adapts a plain function to LandMask.
type LandMaskFunc func(lat, lon float64) bool

func (f LandMaskFunc) IsLand(lat, lon float64) bool { return f(lat, lon) }

// GridLandMask is a land/sea grid with ascending lat/lon axes; a query
// resolves to the nearest cell.
type GridLandMask struct {
	lats []float64
	lons []float64
	land []float64 // row-major lat x lon, nonzero = land
}

// LoadGridLandMask reads a mask file holding datasets "lat" (nlat), "lon"
// (nlon), and "mask" (nlat x nlon).
func LoadGridLandMask(path string) (*GridLandMask, error) {
	data, shapes, err := adapter.ReadFloatsAll(path, "lat", "lon", "mask")
	if err != nil {
		return nil, err
	}
	nlat, nlon := len(data["lat"]), len(data["lon"])
	if got := shapes["mask"]; len(got) != 2 || got[0] != nlat || got[1] != nlon {
		return nil, fmt.Errorf("land mask %s: mask shape %v does not match %dx%d axes", path, got, nlat, nlon)
	}
	return &GridLandMask{lats: data["lat"], lons: data["lon"], land: data["mask"]}, nil
}

// IsLand reports whether the nearest grid cell is land.
func (m *GridLandMask) IsLand(lat, lon float64) bool {
	i := nearest(m.lats, lat)
	j := nearest(m.lons, lon)
	return m.land[i*len(m.lons)+j] != 0
}

// nearest returns the index of the axis value closest to v.
func nearest(axis []float64, v float64) int {
	i := sort.SearchFloat64s(axis, v)
	if i == 0 {
		return 0
	}
	if i == len(axis) {
		return len(axis) - 1
	}
	if v-axis[i-1] <= axis[i]-v {
		return i - 1
	}
	return i
}
