package knowledge

import "context"

// Embedder turns text into a vector. All documents in one store must be
// embedded by the same model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore port for the retrieval index.
type VectorStore interface {
	// Count reports stored documents; zero means the store needs seeding.
	Count(ctx context.Context) (int64, error)
	// Upsert inserts or replaces documents by ID. Embedding must be set.
	Upsert(ctx context.Context, docs ...Document) error
	// Nearest returns up to k documents ordered by ascending distance.
	Nearest(ctx context.Context, vector []float32, k int) ([]Document, error)
}
