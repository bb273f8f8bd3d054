// Package vectors holds the small amount of vector math shared by the
// clusterer, the graph builder and the stores.
package vectors

import "math"

// Cosine computes cosine similarity between two vectors.
// Returns 0.0 for zero-norm vectors or mismatched lengths.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	na := math.Sqrt(normA)
	nb := math.Sqrt(normB)
	if na == 0 || nb == 0 {
		return 0.0
	}
	return dot / (na * nb)
}

// CosineDistance is 1 - Cosine, clamped to [0, 2].
func CosineDistance(a, b []float64) float64 {
	d := 1.0 - Cosine(a, b)
	if d < 0 {
		return 0
	}
	return d
}

// Centroid averages the given vectors. All inputs must share one length;
// vectors of any other length are skipped. Returns nil when nothing
// usable remains.
func Centroid(vecs [][]float64) []float64 {
	var dim int
	for _, v := range vecs {
		if len(v) > 0 {
			dim = len(v)
			break
		}
	}
	if dim == 0 {
		return nil
	}

	sum := make([]float64, dim)
	count := 0
	for _, v := range vecs {
		if len(v) != dim {
			continue
		}
		for i := range v {
			sum[i] += v[i]
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float64(count)
	}
	return sum
}

// NormalizeUnit scales a vector to unit length. Zero vectors pass through
// unchanged.
func NormalizeUnit(v []float64) []float64 {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
