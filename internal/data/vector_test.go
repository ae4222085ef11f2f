package data

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcatSparse(t *testing.T) {
	a := Vector{Dim: 4, Indices: []int32{1, 3}, Values: []float32{0.5, 1}}
	b := Vector{Dim: 3, Indices: []int32{0}, Values: []float32{2}}

	got := Concat(a, b)

	assert.Equal(t, 7, got.Dim)
	assert.Equal(t, []int32{1, 3, 4}, got.Indices)
	assert.Equal(t, []float32{0.5, 1, 2}, got.Values)
	assert.False(t, got.IsDense())
}

func TestConcatMixedDropsZeros(t *testing.T) {
	a := Dense([]float32{0, 1})
	b := Vector{Dim: 2, Indices: []int32{}, Values: []float32{}}

	got := Concat(a, b)

	assert.Equal(t, 4, got.Dim)
	assert.Equal(t, []int32{1}, got.Indices)
}

func TestConcatDense(t *testing.T) {
	got := Concat(Dense([]float32{1, 2}), Dense([]float32{3}))
	assert.True(t, got.IsDense())
	assert.Equal(t, []float32{1, 2, 3}, got.Values)
}

func TestDotAndNorm(t *testing.T) {
	v := Vector{Dim: 3, Indices: []int32{0, 2}, Values: []float32{3, 4}}
	assert.InDelta(t, 5.0, v.Norm(), 1e-9)
	assert.InDelta(t, 3*1+4*3, v.Dot([]float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, math.Sqrt(2), Dense([]float32{1, 1}).Norm(), 1e-9)
}
