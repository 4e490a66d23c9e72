// Package hdf5 adapts the pure-Go HDF5 library to the dataset build: it
// loads the shared reference arrays, reads per-storm simulation output
// (NetCDF-4 files are HDF5 containers, so fort.*.nc parse the same way),
// and writes the consolidated dataset.
package hdf5

import (
	"fmt"
	"os"
	"path/filepath"

	hdf5go "github.com/robert-malhotra/go-hdf5/hdf5"
)

// File names shared between the data directory and storm-local overrides.
const (
	CoastalDistFile = "coastal_dist.hdf5"
	BathyStatsFile  = "bathy_stats.hdf5"
)

// ReadFloats reads one dataset from an HDF5 (or NetCDF-4) file as float64,
// returning the flat data and its shape.
func ReadFloats(path, name string) ([]float64, []int, error) {
	f, err := hdf5go.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readFloatsFrom(f, path, name)
}

// ReadFloatsAll reads several datasets from one file in a single open.
func ReadFloatsAll(path string, names ...string) (map[string][]float64, map[string][]int, error) {
	f, err := hdf5go.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data := make(map[string][]float64, len(names))
	shapes := make(map[string][]int, len(names))
	for _, name := range names {
		d, s, err := readFloatsFrom(f, path, name)
		if err != nil {
			return nil, nil, err
		}
		data[name] = d
		shapes[name] = s
	}
	return data, shapes, nil
}

func readFloatsFrom(f *hdf5go.File, path, name string) ([]float64, []int, error) {
	ds, err := f.OpenDataset(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open dataset %s in %s: %w", name, path, err)
	}
	data, err := ds.ReadFloat64()
	if err != nil {
		return nil, nil, fmt.Errorf("read dataset %s in %s: %w", name, path, err)
	}
	dims := ds.Dims()
	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[i] = int(d)
	}
	return data, shape, nil
}

// Loader loads the shared mesh reference arrays from the data directory.
// It implements mesh.Loader and runs on the coordinator only.
type Loader struct{}

// Load reads coastal_dist.hdf5 (required, dataset "dist") and every dataset
// of bathy_stats.hdf5 (optional) as named fixed-length arrays.
func (Loader) Load(dir string) (map[string][]float64, error) {
	vars := make(map[string][]float64)

	dist, _, err := ReadFloats(filepath.Join(dir, CoastalDistFile), "dist")
	if err != nil {
		return nil, err
	}
	vars["coastal_dist"] = dist

	if err := loadBathyStats(filepath.Join(dir, BathyStatsFile), vars); err != nil {
		return nil, err
	}
	return vars, nil
}

// LoadOverrides reads the storm-local copies of the reference files from a
// unit directory. Both files are optional here; whatever is present shadows
// the shared store for that storm.
func LoadOverrides(dir string) (map[string][]float64, error) {
	vars := make(map[string][]float64)

	coastal := filepath.Join(dir, CoastalDistFile)
	if _, err := os.Stat(coastal); err == nil {
		dist, _, err := ReadFloats(coastal, "dist")
		if err != nil {
			return nil, err
		}
		vars["coastal_dist"] = dist
	}

	if err := loadBathyStats(filepath.Join(dir, BathyStatsFile), vars); err != nil {
		return nil, err
	}
	return vars, nil
}

// loadBathyStats reads every dataset of a bathymetry-statistics file into
// vars, keyed by dataset name. A missing file is not an error.
func loadBathyStats(path string, vars map[string][]float64) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	f, err := hdf5go.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return hdf5go.Walk(f.Root(), func(objPath string, obj interface{}, err error) error {
		if err != nil {
			return err
		}
		ds, ok := obj.(*hdf5go.Dataset)
		if !ok {
			return nil
		}
		data, err := ds.ReadFloat64()
		if err != nil {
			return fmt.Errorf("read dataset %s in %s: %w", objPath, path, err)
		}
		vars[ds.Name()] = data
		return nil
	})
}
