package dataset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-ml-dataset/internal/dataset"
	"github.com/couchcryptid/storm-ml-dataset/internal/domain"
	"github.com/couchcryptid/storm-ml-dataset/internal/tensor"
)

// record builds a minimal extraction record with n selected rows.
func record(n int, extra map[string]tensor.Tensor) domain.Record {
	inds := make([]int64, n)
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		inds[i] = int64(i * 10)
		vals[i] = float64(i)
	}
	rec := domain.Record{
		domain.KeyInds: tensor.FromInts(inds),
		"maxele":       tensor.FromFloats(vals),
	}
	for k, v := range extra {
		rec[k] = v
	}
	return rec
}

func TestAccumulator_TagsStormColumn(t *testing.T) {
	acc := dataset.NewAccumulator()
	acc.Add(7, record(3, nil))

	local, err := acc.Consolidate()
	require.NoError(t, err)

	storm := local[domain.KeyStorm]
	assert.Equal(t, tensor.Int64, storm.Dtype())
	assert.Equal(t, []int64{7, 7, 7}, storm.Ints)
}

func TestAccumulator_ConsolidatePreservesUnitOrder(t *testing.T) {
	acc := dataset.NewAccumulator()
	acc.Add(0, record(2, nil))
	acc.Add(2, record(1, nil))

	local, err := acc.Consolidate()
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 0, 2}, local[domain.KeyStorm].Ints)
	assert.Equal(t, []float64{0, 1, 0}, local["maxele"].Floats)
	assert.Equal(t, 0, acc.Units(), "fragments must be released")
}

func TestAccumulator_MultiDimAndScalarKeys(t *testing.T) {
	acc := dataset.NewAccumulator()
	acc.Add(0, record(1, map[string]tensor.Tensor{
		"landfall_location": tensor.FromFloats([]float64{29.1, -90.2}, 1, 2),
		"landfall_time":     tensor.Scalar(42),
	}))
	acc.Add(1, record(1, map[string]tensor.Tensor{
		"landfall_location": tensor.FromFloats([]float64{30.0, -94.5}, 1, 2),
		"landfall_time":     tensor.Scalar(12),
	}))

	local, err := acc.Consolidate()
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2}, local["landfall_location"].Shape)
	assert.Equal(t, []float64{42, 12}, local["landfall_time"].Floats)
}

func TestAccumulator_KeyMissingFromSomeUnits(t *testing.T) {
	acc := dataset.NewAccumulator()
	acc.Add(0, record(2, map[string]tensor.Tensor{"bathy_mean": tensor.FromFloats([]float64{1, 2})}))
	acc.Add(1, record(1, nil))

	local, err := acc.Consolidate()
	require.NoError(t, err)

	// Keys are unioned across units, not intersected.
	assert.Equal(t, 2, local["bathy_mean"].Rows())
	assert.Equal(t, 3, local["maxele"].Rows())
}

func TestAccumulator_EmptyConsolidatesToNothing(t *testing.T) {
	acc := dataset.NewAccumulator()
	local, err := acc.Consolidate()
	require.NoError(t, err)
	assert.Empty(t, local)
}
