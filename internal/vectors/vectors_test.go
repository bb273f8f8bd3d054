package vectors

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCosine(t *testing.T) {
	t.Parallel()

	if got := Cosine([]float64{1, 0}, []float64{1, 0}); !almostEqual(got, 1) {
		t.Fatalf("identical vectors: got %f, want 1", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{0, 1}); !almostEqual(got, 0) {
		t.Fatalf("orthogonal vectors: got %f, want 0", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{-1, 0}); !almostEqual(got, -1) {
		t.Fatalf("opposite vectors: got %f, want -1", got)
	}
	if got := Cosine([]float64{0, 0}, []float64{1, 0}); got != 0 {
		t.Fatalf("zero vector: got %f, want 0", got)
	}
	if got := Cosine([]float64{1}, []float64{1, 0}); got != 0 {
		t.Fatalf("mismatched lengths: got %f, want 0", got)
	}
}

func TestCosineDistanceClamped(t *testing.T) {
	t.Parallel()

	if got := CosineDistance([]float64{1, 0}, []float64{1, 0}); !almostEqual(got, 0) {
		t.Fatalf("identical vectors: got %f, want 0", got)
	}
	if got := CosineDistance([]float64{1, 0}, []float64{-1, 0}); !almostEqual(got, 2) {
		t.Fatalf("opposite vectors: got %f, want 2", got)
	}
}

func TestCentroid(t *testing.T) {
	t.Parallel()

	got := Centroid([][]float64{{0, 2}, {2, 0}})
	if got == nil || !almostEqual(got[0], 1) || !almostEqual(got[1], 1) {
		t.Fatalf("centroid = %v, want [1 1]", got)
	}

	// Mismatched lengths are skipped, not averaged in.
	got = Centroid([][]float64{{4, 4}, {1, 2, 3}})
	if got == nil || !almostEqual(got[0], 4) || !almostEqual(got[1], 4) {
		t.Fatalf("centroid with mismatched input = %v, want [4 4]", got)
	}

	if got := Centroid(nil); got != nil {
		t.Fatalf("empty input: got %v, want nil", got)
	}
}

func TestNormalizeUnit(t *testing.T) {
	t.Parallel()

	got := NormalizeUnit([]float64{3, 4})
	if !almostEqual(got[0], 0.6) || !almostEqual(got[1], 0.8) {
		t.Fatalf("unit vector = %v", got)
	}

	zero := NormalizeUnit([]float64{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Fatalf("zero vector changed: %v", zero)
	}
}
