package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/ports"
	"github.com/ersonp/saga-core/internal/infrastructure/config"
)

// strengthMultipliers maps a predicted type to the factor applied to
// confidence when deriving the stored strength.
var strengthMultipliers = map[entities.RelationType]float64{
	entities.RelationFamily:     1.0,
	entities.RelationMentor:     0.9,
	entities.RelationEnemy:      0.85,
	entities.RelationAlly:       0.8,
	entities.RelationRival:      0.7,
	entities.RelationAssociated: 0.6,
}

// Scorer turns a feature vector into a typed, confidence-rated suggestion.
// It reads learned weights but never writes them; the learning engine owns
// weight updates.
type Scorer struct {
	db  ports.SuggestionDB
	cfg config.EngineConfig
}

// NewScorer creates a new Scorer.
func NewScorer(db ports.SuggestionDB, cfg config.EngineConfig) *Scorer {
	return &Scorer{
		db:  db,
		cfg: cfg,
	}
}

// Score builds a pending suggestion for one canonical pair. The caller decides
// whether to persist it; nothing is written here. Returns a confidence of 0
// with a nil suggestion when the vector is empty.
func (s *Scorer) Score(ctx context.Context, sagaID string, a, b *entities.Entity, fv entities.FeatureVector, signals TypeSignals) (*entities.Suggestion, error) {
	if len(fv) == 0 {
		return nil, nil
	}

	confidence, weights, err := s.confidence(ctx, sagaID, fv)
	if err != nil {
		return nil, err
	}

	predicted := predictType(fv, signals)
	strength := int(math.Round(confidence * strengthMultiplier(predicted)))

	srcID, tgtID := entities.CanonicalPair(a.ID, b.ID)

	now := time.Now()
	return &entities.Suggestion{
		ID:             uuid.New().String(),
		SagaID:         sagaID,
		SourceEntityID: srcID,
		TargetEntityID: tgtID,
		SuggestedType:  predicted,
		Confidence:     confidence,
		Strength:       strength,
		PriorityScore:  priorityScore(confidence, a.Importance, b.Importance),
		Reasoning:      reasoning(fv, weights, predicted),
		Features:       fv,
		Status:         entities.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// confidence computes the weighted average of present features, scaled to
// [0,100]. The weight lookup order is graduated saga row, then global row,
// then the default.
func (s *Scorer) confidence(ctx context.Context, sagaID string, fv entities.FeatureVector) (float64, map[entities.FeatureType]float64, error) {
	weights := make(map[entities.FeatureType]float64, len(fv))

	var weighted, total float64
	for _, f := range fv {
		w, err := s.lookupWeight(ctx, sagaID, f.Type)
		if err != nil {
			return 0, nil, err
		}
		weights[f.Type] = w
		weighted += f.Value * w
		total += w
	}
	if total == 0 {
		return 0, weights, nil
	}

	confidence := 100 * weighted / total
	return math.Max(0, math.Min(100, confidence)), weights, nil
}

// lookupWeight resolves the effective weight for one feature type.
func (s *Scorer) lookupWeight(ctx context.Context, sagaID string, ft entities.FeatureType) (float64, error) {
	scoped, err := s.db.GetWeight(ctx, sagaID, ft, "")
	if err != nil {
		return 0, fmt.Errorf("reading saga weight: %w", err)
	}
	if scoped != nil && scoped.SampleCount >= s.cfg.MinWeightSamples {
		return scoped.Weight, nil
	}

	global, err := s.db.GetWeight(ctx, entities.GlobalScope, ft, "")
	if err != nil {
		return 0, fmt.Errorf("reading global weight: %w", err)
	}
	if global != nil {
		return global.Weight, nil
	}

	return entities.DefaultWeight, nil
}

// predictType applies the ordered rule list; the first matching rule wins and
// the fallback is always "associated".
func predictType(fv entities.FeatureVector, signals TypeSignals) entities.RelationType {
	coOcc, _ := fv.Get(entities.FeatureCoOccurrence)
	proximity, _ := fv.Get(entities.FeatureTimelineProximity)
	faction, hasFaction := fv.Get(entities.FeatureSharedFaction)
	sameFaction := hasFaction && faction == 1

	switch {
	case signals.OpposingFactions:
		return entities.RelationEnemy
	case signals.SharedFamilyName && proximity >= 0.4:
		return entities.RelationFamily
	case sameFaction && coOcc >= 0.5 && proximity >= 0.4:
		return entities.RelationMentor
	case signals.HasAgeGap && signals.AgeGap >= 20 && sameFaction:
		return entities.RelationMentor
	case sameFaction && coOcc >= 0.3:
		return entities.RelationAlly
	default:
		return entities.RelationAssociated
	}
}

// strengthMultiplier returns the type's multiplier, defaulting to the
// associated factor for structural types.
func strengthMultiplier(rt entities.RelationType) float64 {
	if m, ok := strengthMultipliers[rt]; ok {
		return m
	}
	return strengthMultipliers[entities.RelationAssociated]
}

// priorityScore ranks suggestions for review: confidence boosted by the pair's
// mean editorial importance. Computed once at scoring time and stored.
func priorityScore(confidence, importanceA, importanceB float64) float64 {
	meanImportance := (importanceA + importanceB) / 2
	return confidence * (1 + meanImportance) / 2
}

// reasoning renders a deterministic explanation of the score from the
// weighted feature contributions, strongest first.
func reasoning(fv entities.FeatureVector, weights map[entities.FeatureType]float64, predicted entities.RelationType) string {
	sorted := make(entities.FeatureVector, len(fv))
	copy(sorted, fv)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value*weights[sorted[i].Type] > sorted[j].Value*weights[sorted[j].Type]
	})

	parts := make([]string, 0, len(sorted))
	for _, f := range sorted {
		parts = append(parts, fmt.Sprintf("%s=%.2f (w=%.2f)", f.Type, f.Value, weights[f.Type]))
	}
	return fmt.Sprintf("predicted %s from %s", predicted, strings.Join(parts, ", "))
}
