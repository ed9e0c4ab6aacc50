package sparse

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"
)

func TestVector(t *testing.T) {
	v := FromCounts(map[int]float64{3: 4, 0: 3})
	assert.Equal(t, []int{0, 3}, v.Indices)
	assert.Equal(t, 5.0, v.Norm())

	n := v.Normalized()
	assert.InDelta(t, 1.0, n.Norm(), 1e-12)
	assert.Equal(t, 3.0, v.Values[0], "Normalized must not modify the receiver")

	w := FromCounts(map[int]float64{3: 1, 7: 2})
	assert.Equal(t, 4.0, v.Dot(w))
	assert.InDelta(t, 4/(5*math.Sqrt(5)), Cosine(v, w), 1e-12)
	assert.Equal(t, 0.0, Cosine(v, Vector{}))
}

func TestAppendRow(t *testing.T) {
	m := NewMatrix(5)
	require.NoError(t, m.AppendRow([]int{2, 2, 1}, FromCounts(map[int]float64{1: 1}), FromCounts(map[int]float64{0: 2}), FromCounts(map[int]float64{0: 0.5})))
	require.NoError(t, m.AppendRow([]int{2, 2, 1}, Vector{}, Vector{}, Vector{}))
	require.Equal(t, 2, m.Rows())

	assert.Equal(t, []int{1, 2, 4}, m.Row(0).Indices)
	assert.Equal(t, []float64{1, 2, 0.5}, m.Row(0).Values)
	assert.Empty(t, m.Row(1).Indices)

	assert.Error(t, m.AppendRow([]int{2, 2}, Vector{}, Vector{}))
	assert.Error(t, m.AppendRow([]int{5}, FromCounts(map[int]float64{5: 1})))
}

func TestHStack(t *testing.T) {
	a := NewMatrix(2)
	require.NoError(t, a.AppendRow([]int{2}, FromCounts(map[int]float64{1: 1})))
	b := NewMatrix(1)
	require.NoError(t, b.AppendRow([]int{1}, FromCounts(map[int]float64{0: 7})))

	m, err := HStack(a, b)
	require.NoError(t, err)
	require.Equal(t, 3, m.Cols)
	assert.Equal(t, []int{1, 2}, m.Row(0).Indices)
	assert.Equal(t, []float64{1, 7}, m.Row(0).Values)

	_, err = HStack(a, NewMatrix(1))
	assert.Error(t, err)
}

func TestLabeledMsgp(t *testing.T) {
	m := NewMatrix(3)
	require.NoError(t, m.AppendRow([]int{3}, FromCounts(map[int]float64{0: 0.25, 2: 1})))
	require.NoError(t, m.AppendRow([]int{3}, FromCounts(map[int]float64{1: 2})))
	l := &Labeled{X: m, Y: []int{2, 0}}

	var buf bytes.Buffer
	require.NoError(t, msgp.Encode(&buf, l))

	var got Labeled
	require.NoError(t, msgp.Decode(&buf, &got))
	assert.Equal(t, l.Y, got.Y)
	assert.Equal(t, l.X, got.X)
	assert.Equal(t, 3, got.Width())
}

func TestAppendRowErrorLeavesMatrixIntact(t *testing.T) {
	m := NewMatrix(4)
	require.NoError(t, m.AppendRow([]int{2, 2}, FromCounts(map[int]float64{0: 1}), Vector{}))

	// the first segment is valid, the second is not
	err := m.AppendRow([]int{2, 2}, FromCounts(map[int]float64{1: 3}), FromCounts(map[int]float64{2: 1}))
	require.Error(t, err)
	require.Equal(t, 1, m.Rows())
	assert.Len(t, m.Indices, m.Indptr[1])
	assert.Len(t, m.Values, m.Indptr[1])
	require.NoError(t, m.Validate())

	require.NoError(t, m.AppendRow([]int{2, 2}, Vector{}, FromCounts(map[int]float64{1: 2})))
	assert.Equal(t, []int{3}, m.Row(1).Indices)
	assert.Equal(t, []float64{2}, m.Row(1).Values)
}

func TestDecodeRejectsCorruptMatrix(t *testing.T) {
	for _, m := range []*Matrix{
		{Cols: 2, Indptr: []int{0, 1}, Indices: []int{5}, Values: []float64{1}},
		{Cols: 2, Indptr: []int{0, 1}, Indices: []int{-1}, Values: []float64{1}},
		{Cols: 2, Indptr: []int{1, 1}, Indices: []int{0}, Values: []float64{1}},
		{Cols: 2, Indptr: []int{0, 2, 1}, Indices: []int{0}, Values: []float64{1}},
		{Cols: 2, Indptr: []int{0, 1}, Indices: []int{0}, Values: nil},
	} {
		var buf bytes.Buffer
		require.NoError(t, msgp.Encode(&buf, m))
		var got Matrix
		assert.Error(t, msgp.Decode(&buf, &got), "%+v", m)
	}

	var buf bytes.Buffer
	assert.Error(t, msgp.Encode(&buf, &Labeled{Y: []int{0}}))
}
