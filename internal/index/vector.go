package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrDimensionMismatch is returned when a vector's dimension differs
	// from the dimension the index was built with.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNonFiniteComponent is returned when a vector contains NaN or Inf.
	ErrNonFiniteComponent = errors.New("vector contains non-finite component")
)

// VectorSearcher is the capability the hybrid ranker needs from a semantic
// index. The exhaustive-scan VectorIndex satisfies it; an approximate
// nearest-neighbor structure can be substituted without changing callers.
type VectorSearcher interface {
	Query(vector []float32, topN int) ([]Hit, error)
	Dimension() int
	Len() int
}

// VectorIndex stores one fixed-dimension embedding per chunk and answers
// similarity queries by exhaustive cosine scan. Sufficient for hundreds to
// low thousands of chunks per document.
type VectorIndex struct {
	dimension int
	chunkIDs  []string
	vectors   [][]float32
	norms     []float64
}

// NewVectorIndex creates an empty index for vectors of the given dimension.
func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{dimension: dimension}
}

// Dimension returns the dimensionality the index was built with.
func (v *VectorIndex) Dimension() int { return v.dimension }

// Len returns the number of stored vectors.
func (v *VectorIndex) Len() int { return len(v.vectors) }

// Add appends a chunk embedding. The first added vector fixes the dimension
// when the index was created with dimension 0.
func (v *VectorIndex) Add(chunkID string, vector []float32) error {
	if v.dimension == 0 {
		v.dimension = len(vector)
	}
	if len(vector) != v.dimension {
		return fmt.Errorf("chunk %s: %w: got %d, want %d", chunkID, ErrDimensionMismatch, len(vector), v.dimension)
	}
	for _, c := range vector {
		if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
			return fmt.Errorf("chunk %s: %w", chunkID, ErrNonFiniteComponent)
		}
	}

	v.chunkIDs = append(v.chunkIDs, chunkID)
	v.vectors = append(v.vectors, vector)
	v.norms = append(v.norms, norm(vector))
	return nil
}

// Query returns the topN most similar chunks by cosine similarity, ordered
// by descending similarity with ties broken by insertion order. A query
// vector of the wrong dimension fails fast with ErrDimensionMismatch.
func (v *VectorIndex) Query(vector []float32, topN int) ([]Hit, error) {
	if len(vector) != v.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), v.dimension)
	}
	if topN <= 0 || len(v.vectors) == 0 {
		return nil, nil
	}

	queryNorm := norm(vector)

	hits := make([]Hit, 0, len(v.vectors))
	for i, stored := range v.vectors {
		hits = append(hits, Hit{
			ChunkID: v.chunkIDs[i],
			Ordinal: i,
			Score:   cosine(stored, vector, v.norms[i], queryNorm),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})

	if len(hits) > topN {
		hits = hits[:topN]
	}
	return hits, nil
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func norm(v []float32) float64 {
	var sum float64
	for _, c := range v {
		sum += float64(c) * float64(c)
	}
	return math.Sqrt(sum)
}
