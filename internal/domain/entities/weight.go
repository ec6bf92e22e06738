package entities

import "time"

// GlobalScope is the shared weight pool updated for every saga. Per-saga rows
// shadow it only after graduating past the minimum sample threshold.
const GlobalScope = "global"

// WeightVector is one learned weight for a (scope, feature type, optional
// relationship type) combination. Weight stays within [0,1]; rows are created
// lazily at the default weight on first relevant feedback.
type WeightVector struct {
	SagaID        string       `json:"saga_id"` // saga id or GlobalScope
	FeatureType   FeatureType  `json:"feature_type"`
	RelationType  RelationType `json:"relation_type,omitempty"` // "" = any type
	Weight        float64      `json:"weight"`
	AccuracyScore float64      `json:"accuracy_score"` // observability only, never fed back
	AcceptedCount int          `json:"accepted_count"`
	RejectedCount int          `json:"rejected_count"`
	SampleCount   int          `json:"sample_count"`
	Version       int64        `json:"version"` // compare-and-swap column
	UpdatedAt     time.Time    `json:"updated_at"`
}

// DefaultWeight is the weight assumed when no row exists yet.
const DefaultWeight = 1.0

// NewWeightVector returns a lazily-created row at the default weight.
func NewWeightVector(sagaID string, ft FeatureType) *WeightVector {
	return &WeightVector{
		SagaID:      sagaID,
		FeatureType: ft,
		Weight:      DefaultWeight,
	}
}

// Accuracy recomputes accepted / (accepted + rejected); 0 when unobserved.
func (w *WeightVector) Accuracy() float64 {
	total := w.AcceptedCount + w.RejectedCount
	if total == 0 {
		return 0
	}
	return float64(w.AcceptedCount) / float64(total)
}
