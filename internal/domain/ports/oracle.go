package ports

import (
	"context"

	"github.com/ersonp/saga-core/internal/domain/entities"
)

// SemanticOracle is the optional external service behind the
// semantic_similarity feature. Calls are bounded by a short timeout; on
// timeout or error the extractor omits the feature and moves on - an oracle
// failure never fails a pair or a batch.
type SemanticOracle interface {
	// Similarity returns a [0,1] similarity between two entities'
	// descriptions, or entities.ErrOracleTimeout when the budget is exceeded.
	Similarity(ctx context.Context, a, b *entities.Entity) (float64, error)
}
