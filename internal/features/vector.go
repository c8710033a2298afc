package features

import "math"

// Vector is a sparse feature vector. Indices are strictly increasing.
type Vector struct {
	Indices []int
	Values  []float64
	Dim     int
}

// IsZero reports whether the vector has no non-zero entries.
func (v Vector) IsZero() bool {
	for _, x := range v.Values {
		if x != 0 {
			return false
		}
	}
	return true
}

// Nnz returns the number of stored entries.
func (v Vector) Nnz() int {
	return len(v.Indices)
}

// Norm returns the Euclidean norm.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Dot computes the dot product with a dense weight row.
func (v Vector) Dot(dense []float64) float64 {
	var sum float64
	for k, idx := range v.Indices {
		if idx < len(dense) {
			sum += v.Values[k] * dense[idx]
		}
	}
	return sum
}

// AddScaledTo adds scale*v into the dense row.
func (v Vector) AddScaledTo(dense []float64, scale float64) {
	for k, idx := range v.Indices {
		if idx < len(dense) {
			dense[idx] += scale * v.Values[k]
		}
	}
}

// Dense expands the vector into a dense slice of length Dim.
func (v Vector) Dense() []float64 {
	out := make([]float64, v.Dim)
	for k, idx := range v.Indices {
		out[idx] = v.Values[k]
	}
	return out
}

// Cosine returns the cosine similarity of two sparse vectors.
func Cosine(a, b Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			dot += a.Values[i] * b.Values[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return dot / (na * nb)
}
