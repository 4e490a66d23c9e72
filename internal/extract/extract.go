// Package extract turns one storm simulation directory into a named-array
// record: landfall detection against the best track, a time window around
// landfall over the forcing output, mesh node selection, and per-node
// summary statistics of the forcing variables.
package extract

import (
	"fmt"
	"math"
	"path/filepath"

	adapter "github.com/couchcryptid/storm-ml-dataset/internal/adapter/hdf5"
	"github.com/couchcryptid/storm-ml-dataset/internal/domain"
	"github.com/couchcryptid/storm-ml-dataset/internal/mesh"
	"github.com/couchcryptid/storm-ml-dataset/internal/tensor"
)

// Per-storm files produced by the simulation run. The .nc files are
// NetCDF-4 and therefore readable as HDF5.
const (
	TrackFile    = "best_track.csv"
	PressureFile = "fort.73.nc"
	WindFile     = "fort.74.nc"
	MaxEleFile   = "maxele.63.nc"
)

// Extractor implements the per-unit extraction. It is stateless apart from
// the land mask and safe for concurrent use across ranks.
type Extractor struct {
	Mask LandMask
}

// Extract builds the record for one unit. Errors wrapping
// domain.ErrNoUnitData (no landfall, empty time window, no selected nodes)
// mark the storm as skippable; anything else is a per-unit read failure.
func (e Extractor) Extract(unit domain.Unit, store *mesh.Store, p domain.Params) (domain.Record, error) {
	lats, lons, hours, err := readBestTrack(filepath.Join(unit.Path, TrackFile))
	if err != nil {
		return nil, err
	}

	lfTime, lfCoord, ok := landfall(lats, lons, hours, e.Mask)
	if !ok {
		return nil, fmt.Errorf("no landfall inside search box: %w", domain.ErrNoUnitData)
	}

	forcing, shapes, err := adapter.ReadFloatsAll(filepath.Join(unit.Path, PressureFile),
		"time", "x", "y", "depth", "pressure")
	if err != nil {
		return nil, err
	}
	x, y, depth := forcing["x"], forcing["y"], forcing["depth"]
	numNodes := len(x)

	window := timeWindow(forcing["time"], lfTime, p)
	if len(window) == 0 {
		return nil, fmt.Errorf("no forcing output within landfall window: %w", domain.ErrNoUnitData)
	}

	overrides, err := adapter.LoadOverrides(unit.Path)
	if err != nil {
		return nil, err
	}
	refVar := func(name string) []float64 {
		if v, ok := overrides[name]; ok {
			return v
		}
		v, _ := store.Var(name)
		return v
	}

	coastal := refVar("coastal_dist")
	if len(coastal) != numNodes {
		return nil, fmt.Errorf("unit %s: coastal_dist length %d does not match %d mesh nodes", unit.Label(), len(coastal), numNodes)
	}

	lfDist := make([]float64, numNodes)
	for i := range lfDist {
		lfDist[i] = haversine(y[i], x[i], lfCoord[0], lfCoord[1])
	}

	inds := selectNodes(coastal, lfDist, depth, p)
	if len(inds) == 0 {
		return nil, fmt.Errorf("no mesh nodes selected near landfall: %w", domain.ErrNoUnitData)
	}

	sel := func(arr []float64) []float64 {
		out := make([]float64, len(inds))
		for i, n := range inds {
			out[i] = arr[n]
		}
		return out
	}

	rec := domain.Record{
		domain.KeyInds:      tensor.FromInts(inds),
		"x":                 tensor.FromFloats(sel(x)),
		"y":                 tensor.FromFloats(sel(y)),
		"depth":             tensor.FromFloats(sel(depth)),
		"landfall_dist":     tensor.FromFloats(sel(lfDist)),
		"landfall_location": tensor.FromFloats([]float64{lfCoord[0], lfCoord[1]}, 1, 2),
	}

	if err := checkForcingShape(unit, "pressure", shapes["pressure"], len(forcing["time"]), numNodes); err != nil {
		return nil, err
	}
	addStats(rec, "pressure", forcing["pressure"], numNodes, window, inds)

	wind, windShapes, err := adapter.ReadFloatsAll(filepath.Join(unit.Path, WindFile), "windx", "windy")
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"windx", "windy"} {
		if err := checkForcingShape(unit, name, windShapes[name], len(forcing["time"]), numNodes); err != nil {
			return nil, err
		}
		addStats(rec, name, wind[name], numNodes, window, inds)
	}
	addMagnitudeStats(rec, wind["windx"], wind["windy"], numNodes, window, inds)

	zeta, _, err := adapter.ReadFloats(filepath.Join(unit.Path, MaxEleFile), "zeta_max")
	if err != nil {
		return nil, err
	}
	if len(zeta) != numNodes {
		return nil, fmt.Errorf("unit %s: zeta_max length %d does not match %d mesh nodes", unit.Label(), len(zeta), numNodes)
	}
	rec["maxele"] = tensor.FromFloats(sel(zeta))

	for _, name := range store.Names() {
		rec[name] = tensor.FromFloats(sel(refVar(name)))
	}
	return rec, nil
}

// timeWindow returns the forcing time steps (indices into the time axis)
// falling inside [landfall-before, landfall+after]. Times on disk are
// seconds since simulation start.
func timeWindow(times []float64, lfTime float64, p domain.Params) []int {
	lo := lfTime - p.HoursBefore
	hi := lfTime + p.HoursAfter
	var window []int
	for t, sec := range times {
		h := sec / 3600
		if lo <= h && h <= hi {
			window = append(window, t)
		}
	}
	return window
}

// selectNodes applies the spatial mask (near the coast, near landfall,
// inside the depth band) and downsamples the matching node indices by
// taking every DownsampleFactor-th one.
func selectNodes(coastal, lfDist, depth []float64, p domain.Params) []int64 {
	var inds []int64
	matched := 0
	for i := range coastal {
		if coastal[i] < p.CoastalDistCutoff &&
			lfDist[i] < p.Radius &&
			p.MinDepth < depth[i] && depth[i] < p.MaxDepth {
			if matched%p.DownsampleFactor == 0 {
				inds = append(inds, int64(i))
			}
			matched++
		}
	}
	return inds
}

// addStats records the min, max and mean of one forcing variable over the
// time window, evaluated only at the selected nodes. flat is row-major
// [time, node].
func addStats(rec domain.Record, name string, flat []float64, numNodes int, window []int, inds []int64) {
	rec["min_"+name], rec["max_"+name], rec["mean_"+name] = statsAt(window, inds, func(t int, n int64) float64 {
		return flat[t*numNodes+int(n)]
	})
}

// addMagnitudeStats does the same for wind speed, computed on the fly from
// the two components so the full magnitude field is never materialized.
func addMagnitudeStats(rec domain.Record, windx, windy []float64, numNodes int, window []int, inds []int64) {
	rec["min_magnitude"], rec["max_magnitude"], rec["mean_magnitude"] = statsAt(window, inds, func(t int, n int64) float64 {
		i := t*numNodes + int(n)
		return math.Hypot(windx[i], windy[i])
	})
}

// statsAt reduces value(t, node) over the time window at each selected node.
func statsAt(window []int, inds []int64, value func(t int, n int64) float64) (min, max, mean tensor.Tensor) {
	mins := make([]float64, len(inds))
	maxs := make([]float64, len(inds))
	means := make([]float64, len(inds))
	for i, n := range inds {
		lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
		for _, t := range window {
			v := value(t, n)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			sum += v
		}
		mins[i], maxs[i], means[i] = lo, hi, sum/float64(len(window))
	}
	return tensor.FromFloats(mins), tensor.FromFloats(maxs), tensor.FromFloats(means)
}

// checkForcingShape rejects forcing variables that are not laid out as
// [time, node] matching the unit's own time axis and mesh.
func checkForcingShape(unit domain.Unit, name string, shape []int, numTimes, numNodes int) error {
	if len(shape) != 2 || shape[0] != numTimes || shape[1] != numNodes {
		return fmt.Errorf("unit %s: %s has shape %v, want [%d %d]", unit.Label(), name, shape, numTimes, numNodes)
	}
	return nil
}
