package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerializeDeserializeVector(t *testing.T) {
	vector := []float32{0.1, -0.5, 3.14, 0}
	blob := SerializeVector(vector)
	assert.Len(t, blob, len(vector)*4)

	got := DeserializeVector(blob)
	assert.Equal(t, vector, got)
}

func TestSerializeVectorEmpty(t *testing.T) {
	blob := SerializeVector(nil)
	if len(blob) != 0 {
		t.Errorf("expected empty blob, got %d bytes", len(blob))
	}
	if got := DeserializeVector(blob); len(got) != 0 {
		t.Errorf("expected empty vector, got %v", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.0},
		{"dimension mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityScaleInvariant(t *testing.T) {
	a := []float32{0.3, 0.7, 0.2}
	b := []float32{0.6, 1.4, 0.4} // a scaled by 2
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-6)
}

func TestSortCandidates(t *testing.T) {
	candidates := []candidate{
		{id: "low", score: 0.2},
		{id: "high", score: 0.9},
		{id: "mid", score: 0.5},
	}
	sortCandidates(candidates)
	assert.Equal(t, "high", candidates[0].id)
	assert.Equal(t, "mid", candidates[1].id)
	assert.Equal(t, "low", candidates[2].id)
}
