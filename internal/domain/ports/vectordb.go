package ports

import "context"

// VectorDB caches entity description embeddings so repeated generation jobs
// do not re-embed unchanged descriptions.
type VectorDB interface {
	// EnsureCollection creates the collection if it doesn't exist.
	EnsureCollection(ctx context.Context, vectorSize uint64) error

	// SaveEmbedding stores an entity's description embedding.
	SaveEmbedding(ctx context.Context, entityID, sagaID string, vector []float32) error

	// FindEmbedding returns a cached embedding, or nil when absent.
	FindEmbedding(ctx context.Context, entityID string) ([]float32, error)

	// Close closes the connection.
	Close() error
}
