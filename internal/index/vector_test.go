package index

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorIndexIdenticalVectorsSimilarityOne(t *testing.T) {
	idx := NewVectorIndex(3)
	require.NoError(t, idx.Add("c0", []float32{0.5, -0.2, 0.8}))

	hits, err := idx.Query([]float32{0.5, -0.2, 0.8}, 1)

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestVectorIndexSimilarityBounds(t *testing.T) {
	idx := NewVectorIndex(2)
	require.NoError(t, idx.Add("c0", []float32{1, 0}))
	require.NoError(t, idx.Add("c1", []float32{-1, 0}))
	require.NoError(t, idx.Add("c2", []float32{0, 1}))

	hits, err := idx.Query([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, -1.0)
		assert.LessOrEqual(t, h.Score, 1.0)
	}

	// Parallel, orthogonal, anti-parallel in that order.
	assert.Equal(t, "c0", hits[0].ChunkID)
	assert.Equal(t, "c2", hits[1].ChunkID)
	assert.Equal(t, "c1", hits[2].ChunkID)
	assert.InDelta(t, -1.0, hits[2].Score, 1e-6)
}

func TestVectorIndexDimensionMismatchOnQuery(t *testing.T) {
	idx := NewVectorIndex(3)
	require.NoError(t, idx.Add("c0", []float32{1, 2, 3}))

	hits, err := idx.Query([]float32{1, 2}, 1)

	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Nil(t, hits)
}

func TestVectorIndexDimensionMismatchOnAdd(t *testing.T) {
	idx := NewVectorIndex(3)

	err := idx.Add("c0", []float32{1, 2})

	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 0, idx.Len())
}

func TestVectorIndexRejectsNonFiniteComponents(t *testing.T) {
	idx := NewVectorIndex(2)

	assert.ErrorIs(t, idx.Add("c0", []float32{float32(math.NaN()), 0}), ErrNonFiniteComponent)
	assert.ErrorIs(t, idx.Add("c1", []float32{float32(math.Inf(1)), 0}), ErrNonFiniteComponent)
	assert.Equal(t, 0, idx.Len())
}

func TestVectorIndexFirstAddFixesDimension(t *testing.T) {
	idx := NewVectorIndex(0)
	require.NoError(t, idx.Add("c0", []float32{1, 2, 3, 4}))

	assert.Equal(t, 4, idx.Dimension())
	assert.ErrorIs(t, idx.Add("c1", []float32{1, 2}), ErrDimensionMismatch)
}

func TestVectorIndexZeroVectorScoresZero(t *testing.T) {
	idx := NewVectorIndex(2)
	require.NoError(t, idx.Add("c0", []float32{0, 0}))

	hits, err := idx.Query([]float32{1, 1}, 1)

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0.0, hits[0].Score)
}

func TestVectorIndexTopNTruncates(t *testing.T) {
	idx := NewVectorIndex(2)
	for i, v := range [][]float32{{1, 0}, {0.9, 0.1}, {0.5, 0.5}, {0, 1}} {
		require.NoError(t, idx.Add(string(rune('a'+i)), v))
	}

	hits, err := idx.Query([]float32{1, 0}, 2)

	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ChunkID)
}

func TestVectorIndexEmptyQuery(t *testing.T) {
	idx := NewVectorIndex(2)

	hits, err := idx.Query([]float32{1, 0}, 5)

	require.NoError(t, err)
	assert.Empty(t, hits)
}
