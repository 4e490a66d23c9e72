package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-ml-dataset/internal/tensor"
)

func TestShapeAccessors(t *testing.T) {
	tsr := tensor.FromFloats(make([]float64, 12), 3, 2, 2)

	assert.Equal(t, 3, tsr.Rows())
	assert.Equal(t, []int{2, 2}, tsr.Trailing())
	assert.Equal(t, 4, tsr.ElemsPerRow())
	assert.Equal(t, tensor.Float64, tsr.Dtype())
}

func TestFromFloats_DefaultShape(t *testing.T) {
	tsr := tensor.FromFloats([]float64{1, 2, 3})

	assert.Equal(t, []int{3}, tsr.Shape)
	assert.Equal(t, 1, tsr.ElemsPerRow())
}

func TestConcat_AxisZero(t *testing.T) {
	a := tensor.FromFloats([]float64{1, 2, 3, 4}, 2, 2)
	b := tensor.FromFloats([]float64{5, 6}, 1, 2)

	got, err := tensor.Concat([]tensor.Tensor{a, b})
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2}, got.Shape)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, got.Floats)
}

func TestConcat_ScalarsStack(t *testing.T) {
	frags := []tensor.Tensor{tensor.Scalar(1.5), tensor.Scalar(-2), tensor.Scalar(0)}

	got, err := tensor.Concat(frags)
	require.NoError(t, err)

	assert.Equal(t, []int{3}, got.Shape)
	assert.Equal(t, []float64{1.5, -2, 0}, got.Floats)
}

func TestConcat_Ints(t *testing.T) {
	a := tensor.FromInts([]int64{7, 7})
	b := tensor.FromInts([]int64{9})

	got, err := tensor.Concat([]tensor.Tensor{a, b})
	require.NoError(t, err)

	assert.Equal(t, tensor.Int64, got.Dtype())
	assert.Equal(t, []int64{7, 7, 9}, got.Ints)
}

func TestConcat_Empty(t *testing.T) {
	got, err := tensor.Concat(nil)
	require.NoError(t, err)

	assert.Equal(t, []int{0}, got.Shape)
	assert.Equal(t, 0, got.Rows())
}

func TestConcat_TrailingMismatch(t *testing.T) {
	a := tensor.FromFloats([]float64{1, 2}, 1, 2)
	b := tensor.FromFloats([]float64{1, 2, 3}, 1, 3)

	_, err := tensor.Concat([]tensor.Tensor{a, b})
	assert.Error(t, err)
}

func TestConcat_DtypeMismatch(t *testing.T) {
	a := tensor.FromFloats([]float64{1})
	b := tensor.FromInts([]int64{1})

	_, err := tensor.Concat([]tensor.Tensor{a, b})
	assert.Error(t, err)
}
