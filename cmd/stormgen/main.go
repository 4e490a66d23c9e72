// Command stormgen generates a synthetic data directory for testing the
// dataset build without the published simulation archive: a land mask, the
// shared reference files, and a set of storm directories whose tracks are
// guaranteed to make landfall.
//
// Usage:
//
//	go run ./cmd/stormgen -out data -storms 8 -nodes 500 -steps 48
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	hdf5go "github.com/robert-malhotra/go-hdf5/hdf5"

	adapter "github.com/couchcryptid/storm-ml-dataset/internal/adapter/hdf5"
	"github.com/couchcryptid/storm-ml-dataset/internal/extract"
)

// The synthetic coastline runs along this latitude: north is land.
const coastLat = 29.5

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data", "data directory to generate")
	storms := flag.Int("storms", 8, "number of storm directories")
	nodes := flag.Int("nodes", 500, "mesh nodes per storm")
	steps := flag.Int("steps", 48, "hourly forcing time steps")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(filepath.Join(*out, "storms"), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(*out, "datasets"), 0o755); err != nil {
		return err
	}

	mesh := genMesh(rng, *nodes)
	if err := writeLandMask(filepath.Join(*out, "land_mask.hdf5")); err != nil {
		return err
	}
	if err := writeReference(*out, rng, mesh); err != nil {
		return err
	}

	for i := 0; i < *storms; i++ {
		dir := filepath.Join(*out, "storms", fmt.Sprintf("s%03d", i+1))
		if err := writeStorm(dir, rng, mesh, *steps); err != nil {
			return fmt.Errorf("storm %s: %w", dir, err)
		}
	}

	log.Printf("generated %d storms with %d nodes under %s", *storms, *nodes, *out)
	return nil
}

// meshData is the synthetic coastal mesh shared by all storms.
type meshData struct {
	x, y, depth []float64
}

// genMesh scatters nodes in a band around the synthetic coastline.
func genMesh(rng *rand.Rand, n int) meshData {
	m := meshData{
		x:     make([]float64, n),
		y:     make([]float64, n),
		depth: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		m.x[i] = -95 + 6*rng.Float64()
		m.y[i] = coastLat - 1 + 2*rng.Float64()
		// Depth tracks distance from the coastline: negative inland.
		m.depth[i] = (coastLat-m.y[i])*4 + rng.NormFloat64()*0.5
	}
	return m
}

// writeLandMask writes a 0.1 degree grid with land north of the coastline.
func writeLandMask(path string) error {
	var lat, lon []float64
	for v := 23.0; v <= 32.0; v += 0.1 {
		lat = append(lat, v)
	}
	for v := -99.0; v <= -87.0; v += 0.1 {
		lon = append(lon, v)
	}
	mask := make([][]float64, len(lat))
	for i := range mask {
		mask[i] = make([]float64, len(lon))
		if lat[i] > coastLat {
			for j := range mask[i] {
				mask[i][j] = 1
			}
		}
	}

	f, err := hdf5go.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for name, data := range map[string]interface{}{"lat": lat, "lon": lon, "mask": mask} {
		if _, err := f.Root().CreateDataset(name, data); err != nil {
			return err
		}
	}
	return nil
}

// writeReference writes the shared coastal distance and bathymetry files.
func writeReference(dir string, rng *rand.Rand, m meshData) error {
	n := len(m.y)
	dist := make([]float64, n)
	bathyMean := make([]float64, n)
	bathyStd := make([]float64, n)
	for i := 0; i < n; i++ {
		// Distance from the coastline in km, roughly 111 km per degree.
		dist[i] = math.Abs(m.y[i]-coastLat) * 111
		bathyMean[i] = m.depth[i] + rng.NormFloat64()*0.1
		bathyStd[i] = 0.2 + 0.1*rng.Float64()
	}

	f, err := hdf5go.Create(filepath.Join(dir, adapter.CoastalDistFile))
	if err != nil {
		return err
	}
	if _, err := f.Root().CreateDataset("dist", dist); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	f, err = hdf5go.Create(filepath.Join(dir, adapter.BathyStatsFile))
	if err != nil {
		return err
	}
	defer f.Close()
	for name, data := range map[string]interface{}{"bathy_mean": bathyMean, "bathy_std": bathyStd} {
		if _, err := f.Root().CreateDataset(name, data); err != nil {
			return err
		}
	}
	return nil
}

// writeStorm generates one storm directory: a track crossing the coastline
// northward and matching forcing output.
func writeStorm(dir string, rng *rand.Rand, m meshData, steps int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	lfLon := -94 + 4*rng.Float64()
	lfHour := float64(steps)/2 + rng.Float64()*4

	if err := writeTrack(filepath.Join(dir, extract.TrackFile), lfLon, lfHour, steps); err != nil {
		return err
	}

	n := len(m.x)
	times := make([]float64, steps)
	pressure := make([][]float64, steps)
	windx := make([][]float64, steps)
	windy := make([][]float64, steps)
	for t := 0; t < steps; t++ {
		times[t] = float64(t) * 3600
		pressure[t] = make([]float64, n)
		windx[t] = make([]float64, n)
		windy[t] = make([]float64, n)
		// The pressure drop and winds peak at landfall time near the
		// landfall longitude.
		intensity := math.Exp(-math.Pow(float64(t)-lfHour, 2) / 36)
		for i := 0; i < n; i++ {
			prox := math.Exp(-math.Pow(m.x[i]-lfLon, 2) / 2)
			pressure[t][i] = 1013 - 60*intensity*prox + rng.NormFloat64()
			windx[t][i] = 40 * intensity * prox * math.Sin(float64(t))
			windy[t][i] = 40 * intensity * prox * math.Cos(float64(t))
		}
	}

	err := writeHDF5(filepath.Join(dir, extract.PressureFile), map[string]interface{}{
		"time": times, "x": m.x, "y": m.y, "depth": m.depth, "pressure": pressure,
	})
	if err != nil {
		return err
	}
	err = writeHDF5(filepath.Join(dir, extract.WindFile), map[string]interface{}{
		"windx": windx, "windy": windy,
	})
	if err != nil {
		return err
	}

	zeta := make([]float64, n)
	for i := range zeta {
		zeta[i] = math.Max(0, 3*math.Exp(-math.Pow(m.x[i]-lfLon, 2)/2)+rng.NormFloat64()*0.2)
	}
	return writeHDF5(filepath.Join(dir, extract.MaxEleFile), map[string]interface{}{
		"zeta_max": zeta,
	})
}

// writeTrack writes a straight northward track crossing the coast at the
// given hour.
func writeTrack(path string, lon, lfHour float64, steps int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Storm Latitude", "Storm Longitude", "Hours"}); err != nil {
		return err
	}
	for t := 0; t <= steps; t++ {
		// One quarter degree per hour, placed to cross at lfHour.
		lat := coastLat + 0.25*(float64(t)-lfHour)
		err := w.Write([]string{
			fmt.Sprintf("%.4f", lat),
			fmt.Sprintf("%.4f", lon),
			fmt.Sprintf("%d", t),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeHDF5(path string, datasets map[string]interface{}) error {
	f, err := hdf5go.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for name, data := range datasets {
		if _, err := f.Root().CreateDataset(name, data); err != nil {
			return fmt.Errorf("write %s in %s: %w", name, path, err)
		}
	}
	return nil
}
