package utils

import "math"

// NormalizeL2 scales an embedding vector in place to unit L2 norm, so the dot
// product with another normalized vector is their cosine similarity. A zero
// vector is left as is.
func NormalizeL2(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
