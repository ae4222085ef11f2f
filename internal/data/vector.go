package data

import "math"

// Vector is a float32 feature vector of length Dim. A sparse vector lists
// its non-zero entries in Indices (strictly increasing) with matching
// Values; a dense vector has nil Indices and len(Values) == Dim.
type Vector struct {
	Dim     int
	Indices []int32
	Values  []float32
}

// Dense wraps values as a dense vector.
func Dense(values []float32) Vector {
	return Vector{Dim: len(values), Values: values}
}

// IsDense reports whether v stores every component.
func (v Vector) IsDense() bool {
	return v.Indices == nil && len(v.Values) == v.Dim
}

// Each calls fn for every stored component.
func (v Vector) Each(fn func(i int, x float32)) {
	if v.IsDense() {
		for i, x := range v.Values {
			fn(i, x)
		}
		return
	}
	for j, i := range v.Indices {
		fn(int(i), v.Values[j])
	}
}

// Dot returns the inner product of v with a dense weight row of length v.Dim.
func (v Vector) Dot(w []float32) float64 {
	var sum float64
	v.Each(func(i int, x float32) {
		sum += float64(x) * float64(w[i])
	})
	return sum
}

// Norm returns the Euclidean norm of v.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Concat joins vectors end to end. The result is dense only when every
// input is dense.
func Concat(vs ...Vector) Vector {
	dim, nnz := 0, 0
	allDense := true
	for _, v := range vs {
		dim += v.Dim
		nnz += len(v.Values)
		if !v.IsDense() {
			allDense = false
		}
	}
	if allDense {
		values := make([]float32, 0, dim)
		for _, v := range vs {
			values = append(values, v.Values...)
		}
		return Dense(values)
	}

	out := Vector{
		Dim:     dim,
		Indices: make([]int32, 0, nnz),
		Values:  make([]float32, 0, nnz),
	}
	offset := 0
	for _, v := range vs {
		v.Each(func(i int, x float32) {
			if x == 0 {
				return
			}
			out.Indices = append(out.Indices, int32(offset+i))
			out.Values = append(out.Values, x)
		})
		offset += v.Dim
	}
	return out
}
