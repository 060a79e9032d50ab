// Package flat provides an exact brute-force vector index.
//
// Documents here are at most a few thousand chunks, so a linear scan
// under squared Euclidean distance is both fast enough and exact.
// Exactness is the contract: results are ordered by ascending distance
// with ties broken by ascending chunk position, deterministically.
package flat

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure the types implement the interfaces.
var (
	_ driven.VectorIndexBuilder = (*Builder)(nil)
	_ driven.VectorIndex        = (*Index)(nil)
)

// Builder constructs flat indexes.
type Builder struct{}

// NewBuilder creates a flat index builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build creates an index over the given vectors. The vectors are copied;
// the index is immutable afterwards.
func (b *Builder) Build(_ context.Context, vectors [][]float32) (driven.VectorIndex, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("flat: no vectors to index")
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("flat: zero-dimension vector at position 0")
	}

	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("flat: inconsistent dimensions: vector %d has %d, expected %d", i, len(v), dim)
		}
		cp := make([]float32, dim)
		copy(cp, v)
		stored[i] = cp
	}

	return &Index{vectors: stored, dim: dim}, nil
}

// Index is an immutable flat index over equal-dimension vectors.
type Index struct {
	vectors [][]float32
	dim     int
}

// Size returns the number of indexed vectors.
func (ix *Index) Size() int {
	return len(ix.vectors)
}

// Dimensions returns the vector dimension the index was built with.
func (ix *Index) Dimensions() int {
	return ix.dim
}

// Search returns the k nearest positions to the query vector by squared
// Euclidean distance, ascending. Ties are broken by ascending position.
func (ix *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("flat: query dimension %d does not match index dimension %d", len(query), ix.dim)
	}
	if k <= 0 {
		return nil, fmt.Errorf("flat: k must be positive, got %d", k)
	}

	hits := make([]driven.VectorHit, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = driven.VectorHit{Position: i, Distance: squaredL2(query, v)}
	}

	// SliceStable keeps equal distances in position order.
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// squaredL2 computes the squared Euclidean distance between two vectors
// of equal length. Accumulation happens in float64 so that long vectors
// do not lose precision.
func squaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}
