package mocks

import "context"

// VectorDB is a mock implementation of ports.VectorDB backed by a map.
type VectorDB struct {
	Embeddings map[string][]float32
	Err        error
}

// NewVectorDB creates a new mock VectorDB.
func NewVectorDB() *VectorDB {
	return &VectorDB{
		Embeddings: make(map[string][]float32),
	}
}

// EnsureCollection creates the collection if it doesn't exist.
func (m *VectorDB) EnsureCollection(_ context.Context, _ uint64) error {
	return m.Err
}

// SaveEmbedding stores an embedding keyed by entity ID.
func (m *VectorDB) SaveEmbedding(_ context.Context, entityID, _ string, vector []float32) error {
	if m.Err != nil {
		return m.Err
	}
	m.Embeddings[entityID] = vector
	return nil
}

// FindEmbedding returns a stored embedding, or nil when absent.
func (m *VectorDB) FindEmbedding(_ context.Context, entityID string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Embeddings[entityID], nil
}

// Close closes the connection.
func (m *VectorDB) Close() error {
	return nil
}
