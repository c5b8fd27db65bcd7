package core

import "math"

// NormalizeVector returns a unit-length copy of v, so the dot product of two
// normalized vectors is their cosine similarity. A zero vector normalizes to
// a zero vector of the same length; an empty vector is returned as is.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}

	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
