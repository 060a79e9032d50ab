package driven

import "context"

// VectorIndexBuilder constructs a nearest-neighbour index over a
// document's chunk embeddings. The index is built once at ingestion
// and never updated afterwards.
type VectorIndexBuilder interface {
	// Build creates an index from the given vectors. The vector at slice
	// position i belongs to the chunk at position i. Build fails if
	// vectors is empty or the dimensions are inconsistent.
	Build(ctx context.Context, vectors [][]float32) (VectorIndex, error)
}

// VectorIndex answers k-nearest-neighbour queries over a fixed set of
// embeddings under squared Euclidean distance.
type VectorIndex interface {
	// Search returns the k nearest chunk positions to the query vector,
	// ordered by ascending distance. Equal distances are broken by
	// ascending chunk position. Result length is min(k, Size()).
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Size returns the number of indexed vectors.
	Size() int

	// Dimensions returns the vector dimension the index was built with.
	Dimensions() int
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Position is the 0-based chunk position of the match.
	Position int

	// Distance is the squared Euclidean distance to the query vector.
	Distance float32
}
