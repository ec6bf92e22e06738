package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/mocks"
)

func described(id, text string) *entities.Entity {
	return &entities.Entity{
		ID:          id,
		SagaID:      "saga1",
		Name:        id,
		Description: text,
	}
}

func TestSimilarityIdenticalDescriptions(t *testing.T) {
	embedder := &mocks.Embedder{EmbeddingResult: []float32{0.5, 0.5, 0}}
	oracle := New(embedder, nil, time.Second)

	got, err := oracle.Similarity(context.Background(),
		described("a", "a jedi"), described("b", "a jedi"))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-6)
	assert.Equal(t, 2, embedder.Calls)
}

func TestSimilarityUsesCachedVectors(t *testing.T) {
	cache := mocks.NewVectorDB()
	cache.Embeddings["a"] = []float32{1, 0}
	cache.Embeddings["b"] = []float32{0, 1}

	embedder := &mocks.Embedder{EmbeddingResult: []float32{1, 1}}
	oracle := New(embedder, cache, time.Second)

	got, err := oracle.Similarity(context.Background(),
		described("a", "x"), described("b", "y"))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-6)
	assert.Equal(t, 0, embedder.Calls, "cache hits must not embed")
}

func TestSimilarityPopulatesCache(t *testing.T) {
	cache := mocks.NewVectorDB()
	embedder := &mocks.Embedder{EmbeddingResult: []float32{1, 2, 3}}
	oracle := New(embedder, cache, time.Second)

	_, err := oracle.Similarity(context.Background(),
		described("a", "x"), described("b", "y"))
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.Calls)
	assert.Contains(t, cache.Embeddings, "a")
	assert.Contains(t, cache.Embeddings, "b")

	// A second comparison is served entirely from the cache.
	_, err = oracle.Similarity(context.Background(),
		described("a", "x"), described("b", "y"))
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.Calls)
}

func TestSimilarityClampsNegativeCosine(t *testing.T) {
	cache := mocks.NewVectorDB()
	cache.Embeddings["a"] = []float32{1, 0}
	cache.Embeddings["b"] = []float32{-1, 0}

	oracle := New(&mocks.Embedder{}, cache, time.Second)

	got, err := oracle.Similarity(context.Background(),
		described("a", "x"), described("b", "y"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestSimilarityRequiresDescriptions(t *testing.T) {
	oracle := New(&mocks.Embedder{EmbeddingResult: []float32{1}}, nil, time.Second)

	_, err := oracle.Similarity(context.Background(),
		described("a", ""), described("b", "y"))
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestSimilarityTimeout(t *testing.T) {
	embedder := &mocks.Embedder{Err: context.DeadlineExceeded}
	oracle := New(embedder, nil, time.Millisecond)

	_, err := oracle.Similarity(context.Background(),
		described("a", "x"), described("b", "y"))
	assert.ErrorIs(t, err, entities.ErrOracleTimeout)
}

func TestCosine(t *testing.T) {
	assert.Equal(t, 0.0, cosine(nil, nil))
	assert.Equal(t, 0.0, cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 1}))
	assert.InDelta(t, 1.0, cosine([]float32{2, 0}, []float32{5, 0}), 1e-9)
}
