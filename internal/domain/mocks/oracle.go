package mocks

import (
	"context"

	"github.com/ersonp/saga-core/internal/domain/entities"
)

// SemanticOracle is a mock implementation of ports.SemanticOracle.
type SemanticOracle struct {
	SimilarityResult float64
	Err              error
	Calls            int
}

// Similarity returns the configured similarity or error.
func (m *SemanticOracle) Similarity(_ context.Context, _, _ *entities.Entity) (float64, error) {
	m.Calls++
	if m.Err != nil {
		return 0, m.Err
	}
	return m.SimilarityResult, nil
}
