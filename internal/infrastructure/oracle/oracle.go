// Package oracle provides the semantic-similarity oracle backing the
// semantic_similarity feature: entity descriptions are embedded (with a
// Qdrant cache in front of the embedding provider) and compared by cosine
// similarity. Every call is bounded by a short timeout so a slow oracle can
// only ever cost one omitted feature, never a failed pair or batch.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/ports"
)

// Oracle implements ports.SemanticOracle.
type Oracle struct {
	embedder ports.Embedder
	cache    ports.VectorDB
	timeout  time.Duration
}

// New creates an oracle. cache may be nil, in which case every call embeds
// fresh.
func New(embedder ports.Embedder, cache ports.VectorDB, timeout time.Duration) *Oracle {
	return &Oracle{
		embedder: embedder,
		cache:    cache,
		timeout:  timeout,
	}
}

// Similarity returns a [0,1] cosine similarity between two entities'
// descriptions, or entities.ErrOracleTimeout when the call budget is
// exceeded. Entities without description text cannot be compared.
func (o *Oracle) Similarity(ctx context.Context, a, b *entities.Entity) (float64, error) {
	if a.Description == "" || b.Description == "" {
		return 0, fmt.Errorf("%w: entity without description", entities.ErrValidation)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	va, err := o.embeddingFor(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := o.embeddingFor(ctx, b)
	if err != nil {
		return 0, err
	}

	return clamp01(cosine(va, vb)), nil
}

// embeddingFor returns the entity's description embedding, consulting the
// cache first and populating it after a fresh embed.
func (o *Oracle) embeddingFor(ctx context.Context, e *entities.Entity) ([]float32, error) {
	if o.cache != nil {
		if v, err := o.cache.FindEmbedding(ctx, e.ID); err == nil && v != nil {
			return v, nil
		}
	}

	v, err := o.embedder.Embed(ctx, e.Description)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding %s: %w", e.ID, entities.ErrOracleTimeout)
		}
		return nil, fmt.Errorf("embedding %s: %w", e.ID, err)
	}

	if o.cache != nil {
		// Best effort; a cache write failure never fails the feature.
		_ = o.cache.SaveEmbedding(ctx, e.ID, e.SagaID, v)
	}

	return v, nil
}

// cosine computes the cosine similarity of two vectors.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
