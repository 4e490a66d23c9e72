package hdf5_test

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	hdf5go "github.com/robert-malhotra/go-hdf5/hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapter "github.com/couchcryptid/storm-ml-dataset/internal/adapter/hdf5"
	"github.com/couchcryptid/storm-ml-dataset/internal/domain"
	"github.com/couchcryptid/storm-ml-dataset/internal/tensor"
)

// writeRefFile creates an HDF5 file with the given float64 datasets.
func writeRefFile(t *testing.T, path string, datasets map[string][]float64) {
	t.Helper()
	f, err := hdf5go.Create(path)
	require.NoError(t, err)
	for name, data := range datasets {
		_, err := f.Root().CreateDataset(name, data)
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeRefFile(t, filepath.Join(dir, adapter.CoastalDistFile), map[string][]float64{
		"dist": {5, 25, 80},
	})
	writeRefFile(t, filepath.Join(dir, adapter.BathyStatsFile), map[string][]float64{
		"bathy_mean": {1, 2, 3},
		"bathy_std":  {0.1, 0.2, 0.3},
	})

	vars, err := adapter.Loader{}.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, []float64{5, 25, 80}, vars["coastal_dist"])
	assert.Equal(t, []float64{1, 2, 3}, vars["bathy_mean"])
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vars["bathy_std"])
}

func TestLoader_MissingCoastalDistFails(t *testing.T) {
	_, err := adapter.Loader{}.Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadOverrides_AllOptional(t *testing.T) {
	vars, err := adapter.LoadOverrides(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, vars)
}

func TestLoadOverrides_ShadowsPresent(t *testing.T) {
	dir := t.TempDir()
	writeRefFile(t, filepath.Join(dir, adapter.BathyStatsFile), map[string][]float64{
		"bathy_mean": {9},
	})

	vars, err := adapter.LoadOverrides(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string][]float64{"bathy_mean": {9}}, vars)
}

func TestReadFloats_Shape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.hdf5")
	f, err := hdf5go.Create(path)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("pressure", [][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, shape, err := adapter.ReadFloats(path, "pressure")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, shape)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, data)
}

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ike.hdf5")
	data := map[string]tensor.Tensor{
		"maxele":            tensor.FromFloats([]float64{0.5, 1.5, 2.5}),
		"storm":             tensor.FromInts([]int64{0, 0, 1}),
		"landfall_location": tensor.FromFloats([]float64{29.1, -90.2, 30.0, -94.5}, 2, 2),
	}
	params := domain.DefaultParams()
	meta := adapter.Meta{RunID: "run-1", CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	w := adapter.NewWriter(slog.Default())
	require.NoError(t, w.Write(path, data, []string{"s001", "s002"}, params, meta))

	f, err := hdf5go.Open(path)
	require.NoError(t, err)
	defer f.Close()

	maxele, err := f.OpenDataset("maxele")
	require.NoError(t, err)
	vals, err := maxele.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5, 2.5}, vals)

	storm, err := f.OpenDataset("storm")
	require.NoError(t, err)
	stormVals, err := storm.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 1}, stormVals)

	loc, err := f.OpenDataset("landfall_location")
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 2}, loc.Dims())

	names, err := f.OpenDataset("storm_names")
	require.NoError(t, err)
	labels, err := names.ReadString()
	require.NoError(t, err)
	assert.Equal(t, []string{"s001", "s002"}, labels)

	hb, err := f.ReadAttr("/storm_names@hours_before")
	require.NoError(t, err)
	assert.EqualValues(t, 6.0, hb)

	runID, err := f.ReadAttr("/storm_names@run_id")
	require.NoError(t, err)
	assert.EqualValues(t, "run-1", runID)
}

func TestWriter_RejectsHigherRank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.hdf5")
	data := map[string]tensor.Tensor{
		"cube": tensor.FromFloats(make([]float64, 8), 2, 2, 2),
	}

	err := adapter.NewWriter(slog.Default()).Write(path, data, nil, domain.DefaultParams(), adapter.Meta{})
	assert.Error(t, err)
}
