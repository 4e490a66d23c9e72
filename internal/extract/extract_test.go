package extract_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	hdf5go "github.com/robert-malhotra/go-hdf5/hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapter "github.com/couchcryptid/storm-ml-dataset/internal/adapter/hdf5"
	"github.com/couchcryptid/storm-ml-dataset/internal/comm"
	"github.com/couchcryptid/storm-ml-dataset/internal/domain"
	"github.com/couchcryptid/storm-ml-dataset/internal/extract"
	"github.com/couchcryptid/storm-ml-dataset/internal/mesh"
)

// westOfGulfCoast puts the coastline at longitude -90: everything west of
// it is land. Tracks moving west therefore make landfall crossing it.
var westOfGulfCoast = extract.LandMaskFunc(func(lat, lon float64) bool {
	return lon < -90
})

type stubLoader map[string][]float64

func (l stubLoader) Load(string) (map[string][]float64, error) {
	out := make(map[string][]float64, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out, nil
}

// buildStore constructs a single-rank reference store for extraction tests.
func buildStore(t *testing.T, vars map[string][]float64) *mesh.Store {
	t.Helper()
	c := comm.NewGroup(1)[0]
	store, err := mesh.Build(c, t.TempDir(), stubLoader(vars), slog.Default())
	require.NoError(t, err)
	return store
}

func writeHDF5(t *testing.T, path string, datasets map[string]interface{}) {
	t.Helper()
	f, err := hdf5go.Create(path)
	require.NoError(t, err)
	for name, data := range datasets {
		_, err := f.Root().CreateDataset(name, data)
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())
}

// writeStormDir lays out a complete simulated storm directory with four
// mesh nodes and four forcing time steps, two of which fall inside the
// landfall window.
func writeStormDir(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))

	track := "Storm Latitude,Storm Longitude,Hours\n" +
		"29.5,-89.0,10\n" +
		"29.5,-89.6,11\n" +
		"29.5,-90.4,12\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, extract.TrackFile), []byte(track), 0o644))

	// Nodes 0-2 sit near the landfall longitude; node 3 is ~500 km west.
	writeHDF5(t, filepath.Join(dir, extract.PressureFile), map[string]interface{}{
		"time":  []float64{0, 11 * 3600, 11.5 * 3600, 30 * 3600},
		"x":     []float64{-90.0, -90.2, -90.4, -95.0},
		"y":     []float64{29.0, 29.1, 29.2, 30.0},
		"depth": []float64{0, 1, 0, 1},
		"pressure": [][]float64{
			{500, 500, 500, 500},
			{1000, 990, 970, 960},
			{980, 1000, 975, 965},
			{500, 500, 500, 500},
		},
	})
	writeHDF5(t, filepath.Join(dir, extract.WindFile), map[string]interface{}{
		"windx": [][]float64{
			{9, 9, 9, 9},
			{3, 0, 1, 1},
			{0, 4, 1, 1},
			{9, 9, 9, 9},
		},
		"windy": [][]float64{
			{9, 9, 9, 9},
			{4, 0, 1, 1},
			{0, 3, 1, 1},
			{9, 9, 9, 9},
		},
	})
	writeHDF5(t, filepath.Join(dir, extract.MaxEleFile), map[string]interface{}{
		"zeta_max": []float64{0.5, 1.5, 2.5, 3.5},
	})
}

func testParams() domain.Params {
	p := domain.DefaultParams()
	p.DownsampleFactor = 1
	return p
}

func TestExtract_FullRecord(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "s001")
	writeStormDir(t, dir)
	// Node 2 is too far from the coast; nodes 0, 1 and 3 qualify on
	// coastal distance, but node 3 is outside the landfall radius.
	store := buildStore(t, map[string][]float64{
		"coastal_dist": {5, 10, 50, 5},
	})

	e := extract.Extractor{Mask: westOfGulfCoast}
	rec, err := e.Extract(domain.Unit{Path: dir, Index: 0}, store, testParams())
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 1}, rec[domain.KeyInds].Ints)
	assert.Equal(t, 2, rec.SelectedRows())

	assert.Equal(t, []float64{-90.0, -90.2}, rec["x"].Floats)
	assert.Equal(t, []float64{29.0, 29.1}, rec["y"].Floats)
	assert.Equal(t, []float64{0, 1}, rec["depth"].Floats)
	assert.Equal(t, []float64{5, 10}, rec["coastal_dist"].Floats)
	assert.Equal(t, []float64{0.5, 1.5}, rec["maxele"].Floats)

	// Only the two time steps near landfall contribute to the statistics.
	assert.Equal(t, []float64{980, 990}, rec["min_pressure"].Floats)
	assert.Equal(t, []float64{1000, 1000}, rec["max_pressure"].Floats)
	assert.Equal(t, []float64{990, 995}, rec["mean_pressure"].Floats)

	assert.Equal(t, []float64{0, 0}, rec["min_windx"].Floats)
	assert.Equal(t, []float64{3, 4}, rec["max_windx"].Floats)
	assert.Equal(t, []float64{0, 0}, rec["min_magnitude"].Floats)
	assert.Equal(t, []float64{5, 5}, rec["max_magnitude"].Floats)
	assert.Equal(t, []float64{2.5, 2.5}, rec["mean_magnitude"].Floats)

	require.Equal(t, []int{1, 2}, rec["landfall_location"].Shape)
	assert.InDelta(t, 29.5, rec["landfall_location"].Floats[0], 0.01)
	assert.InDelta(t, -90.0, rec["landfall_location"].Floats[1], 0.05)

	for i, d := range rec["landfall_dist"].Floats {
		assert.Lessf(t, d, 150.0, "node %d should be inside the landfall radius", i)
	}
}

func TestExtract_NoLandfallSkips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "s002")
	writeStormDir(t, dir)
	store := buildStore(t, map[string][]float64{"coastal_dist": {5, 10, 50, 5}})

	e := extract.Extractor{Mask: extract.LandMaskFunc(func(lat, lon float64) bool { return false })}
	_, err := e.Extract(domain.Unit{Path: dir, Index: 0}, store, testParams())
	assert.ErrorIs(t, err, domain.ErrNoUnitData)
}

func TestExtract_EmptyWindowSkips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "s003")
	writeStormDir(t, dir)
	store := buildStore(t, map[string][]float64{"coastal_dist": {5, 10, 50, 5}})

	p := testParams()
	// Landfall interpolates to ~11.505 h; no forcing step is this close.
	p.HoursBefore, p.HoursAfter = 0.001, 0.001
	e := extract.Extractor{Mask: westOfGulfCoast}
	_, err := e.Extract(domain.Unit{Path: dir, Index: 0}, store, p)
	assert.ErrorIs(t, err, domain.ErrNoUnitData)
}

func TestExtract_NoSelectedNodesSkips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "s004")
	writeStormDir(t, dir)
	store := buildStore(t, map[string][]float64{"coastal_dist": {99, 99, 99, 99}})

	e := extract.Extractor{Mask: westOfGulfCoast}
	_, err := e.Extract(domain.Unit{Path: dir, Index: 0}, store, testParams())
	assert.ErrorIs(t, err, domain.ErrNoUnitData)
}

func TestExtract_LocalOverrideShadowsStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "s005")
	writeStormDir(t, dir)
	// The shared store would select nodes 0 and 1; the storm-local copy
	// moves node 1 far from the coast.
	writeHDF5(t, filepath.Join(dir, adapter.CoastalDistFile), map[string]interface{}{
		"dist": []float64{5, 500, 50, 5},
	})
	store := buildStore(t, map[string][]float64{"coastal_dist": {5, 10, 50, 5}})

	e := extract.Extractor{Mask: westOfGulfCoast}
	rec, err := e.Extract(domain.Unit{Path: dir, Index: 0}, store, testParams())
	require.NoError(t, err)

	assert.Equal(t, []int64{0}, rec[domain.KeyInds].Ints)
	assert.Equal(t, []float64{5}, rec["coastal_dist"].Floats)
}

func TestExtract_Downsample(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "s006")
	writeStormDir(t, dir)
	store := buildStore(t, map[string][]float64{"coastal_dist": {5, 10, 50, 5}})

	p := testParams()
	p.DownsampleFactor = 2
	e := extract.Extractor{Mask: westOfGulfCoast}
	rec, err := e.Extract(domain.Unit{Path: dir, Index: 0}, store, p)
	require.NoError(t, err)

	// Every second matching node: of {0, 1} only node 0 survives.
	assert.Equal(t, []int64{0}, rec[domain.KeyInds].Ints)
}

func TestExtract_MissingTrackFileErrors(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "s007")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	store := buildStore(t, map[string][]float64{"coastal_dist": {5}})

	e := extract.Extractor{Mask: westOfGulfCoast}
	_, err := e.Extract(domain.Unit{Path: dir, Index: 0}, store, testParams())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoUnitData)
}
