package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/mocks"
	"github.com/ersonp/saga-core/internal/infrastructure/config"
)

func testEngineConfig() config.EngineConfig {
	return config.Default().Engine
}

func TestScoreWeightedConfidence(t *testing.T) {
	db := mocks.NewSuggestionDB()
	scorer := NewScorer(db, testEngineConfig())

	obiwan := newTestEntity("a", "saga1", "Obi-Wan")
	obiwan.Importance = 0.9
	luke := newTestEntity("b", "saga1", "Luke")
	luke.Importance = 0.9

	fv := entities.FeatureVector{
		{Type: entities.FeatureCoOccurrence, Value: 0.8},
		{Type: entities.FeatureTimelineProximity, Value: 0.6},
		{Type: entities.FeatureSharedFaction, Value: 1.0},
	}
	signals := TypeSignals{}

	sugg, err := scorer.Score(context.Background(), "saga1", obiwan, luke, fv, signals)
	require.NoError(t, err)
	require.NotNil(t, sugg)

	// Default weights give the plain mean: (0.8 + 0.6 + 1.0) / 3 * 100.
	assert.InDelta(t, 80.0, sugg.Confidence, 1e-9)
	assert.Equal(t, entities.RelationMentor, sugg.SuggestedType)
	assert.Equal(t, 72, sugg.Strength) // round(80 * 0.9)
	assert.InDelta(t, 80*(1+0.9)/2, sugg.PriorityScore, 1e-9)
	assert.Equal(t, entities.StatusPending, sugg.Status)
	assert.Equal(t, "a", sugg.SourceEntityID)
	assert.Equal(t, "b", sugg.TargetEntityID)
	assert.NotEmpty(t, sugg.Reasoning)
}

func TestScoreEmptyVector(t *testing.T) {
	db := mocks.NewSuggestionDB()
	scorer := NewScorer(db, testEngineConfig())

	sugg, err := scorer.Score(context.Background(), "saga1",
		newTestEntity("a", "saga1", "A"), newTestEntity("b", "saga1", "B"), nil, TypeSignals{})
	require.NoError(t, err)
	assert.Nil(t, sugg)
}

func TestScoreConfidenceBounds(t *testing.T) {
	db := mocks.NewSuggestionDB()
	scorer := NewScorer(db, testEngineConfig())
	ctx := context.Background()

	a := newTestEntity("a", "saga1", "A")
	b := newTestEntity("b", "saga1", "B")

	for _, tc := range []struct {
		name string
		fv   entities.FeatureVector
		want float64
	}{
		{"all zeros", entities.FeatureVector{
			{Type: entities.FeatureCoOccurrence, Value: 0},
			{Type: entities.FeatureSharedFaction, Value: 0},
		}, 0},
		{"all ones", entities.FeatureVector{
			{Type: entities.FeatureCoOccurrence, Value: 1},
			{Type: entities.FeatureSharedFaction, Value: 1},
		}, 100},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sugg, err := scorer.Score(ctx, "saga1", a, b, tc.fv, TypeSignals{})
			require.NoError(t, err)
			require.NotNil(t, sugg)
			assert.InDelta(t, tc.want, sugg.Confidence, 1e-9)
			assert.GreaterOrEqual(t, sugg.Confidence, 0.0)
			assert.LessOrEqual(t, sugg.Confidence, 100.0)
		})
	}
}

func TestScoreUsesLearnedWeights(t *testing.T) {
	db := mocks.NewSuggestionDB()
	ctx := context.Background()

	// Down-weight co_occurrence globally.
	w := entities.NewWeightVector(entities.GlobalScope, entities.FeatureCoOccurrence)
	w.Weight = 0.5
	require.NoError(t, db.SaveWeight(ctx, w))

	scorer := NewScorer(db, testEngineConfig())
	fv := entities.FeatureVector{
		{Type: entities.FeatureCoOccurrence, Value: 1.0},
		{Type: entities.FeatureSharedFaction, Value: 0.0},
	}

	sugg, err := scorer.Score(ctx, "saga1",
		newTestEntity("a", "saga1", "A"), newTestEntity("b", "saga1", "B"), fv, TypeSignals{})
	require.NoError(t, err)
	require.NotNil(t, sugg)

	// 100 * (1*0.5 + 0*1) / (0.5 + 1)
	assert.InDelta(t, 100.0/3.0, sugg.Confidence, 1e-9)
}

func TestScoreSagaWeightsRequireGraduation(t *testing.T) {
	db := mocks.NewSuggestionDB()
	ctx := context.Background()
	cfg := testEngineConfig()

	global := entities.NewWeightVector(entities.GlobalScope, entities.FeatureCoOccurrence)
	global.Weight = 0.8
	require.NoError(t, db.SaveWeight(ctx, global))

	scoped := entities.NewWeightVector("saga1", entities.FeatureCoOccurrence)
	scoped.Weight = 0.2
	scoped.SampleCount = cfg.MinWeightSamples - 1
	require.NoError(t, db.SaveWeight(ctx, scoped))

	scorer := NewScorer(db, cfg)
	fv := entities.FeatureVector{{Type: entities.FeatureCoOccurrence, Value: 1.0}}

	a := newTestEntity("a", "saga1", "A")
	b := newTestEntity("b", "saga1", "B")

	// Below the sample threshold the saga row is ignored.
	sugg, err := scorer.Score(ctx, "saga1", a, b, fv, TypeSignals{})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, sugg.Confidence, 1e-9)

	// At the threshold it shadows the global pool. Weight cancels out for a
	// single feature, so check through the lookup directly.
	scoped.SampleCount = cfg.MinWeightSamples
	require.NoError(t, db.SaveWeight(ctx, scoped))

	w, err := scorer.lookupWeight(ctx, "saga1", entities.FeatureCoOccurrence)
	require.NoError(t, err)
	assert.Equal(t, 0.2, w)
}

func TestPredictTypeRuleOrder(t *testing.T) {
	sameFaction := entities.FeatureVector{
		{Type: entities.FeatureCoOccurrence, Value: 0.8},
		{Type: entities.FeatureTimelineProximity, Value: 0.6},
		{Type: entities.FeatureSharedFaction, Value: 1.0},
	}

	for _, tc := range []struct {
		name    string
		fv      entities.FeatureVector
		signals TypeSignals
		want    entities.RelationType
	}{
		{
			name:    "opposition beats everything",
			fv:      sameFaction,
			signals: TypeSignals{OpposingFactions: true, SharedFamilyName: true},
			want:    entities.RelationEnemy,
		},
		{
			name:    "family beats mentor",
			fv:      sameFaction,
			signals: TypeSignals{SharedFamilyName: true},
			want:    entities.RelationFamily,
		},
		{
			name: "family needs timeline proximity",
			fv: entities.FeatureVector{
				{Type: entities.FeatureTimelineProximity, Value: 0.2},
			},
			signals: TypeSignals{SharedFamilyName: true},
			want:    entities.RelationAssociated,
		},
		{
			name:    "mentor from co-occurrence and proximity",
			fv:      sameFaction,
			signals: TypeSignals{},
			want:    entities.RelationMentor,
		},
		{
			name: "mentor from age gap in shared faction",
			fv: entities.FeatureVector{
				{Type: entities.FeatureCoOccurrence, Value: 0.1},
				{Type: entities.FeatureSharedFaction, Value: 1.0},
			},
			signals: TypeSignals{HasAgeGap: true, AgeGap: 25},
			want:    entities.RelationMentor,
		},
		{
			name: "ally from shared faction alone",
			fv: entities.FeatureVector{
				{Type: entities.FeatureCoOccurrence, Value: 0.4},
				{Type: entities.FeatureSharedFaction, Value: 1.0},
			},
			signals: TypeSignals{},
			want:    entities.RelationAlly,
		},
		{
			name: "default is associated",
			fv: entities.FeatureVector{
				{Type: entities.FeatureCoOccurrence, Value: 0.9},
			},
			signals: TypeSignals{},
			want:    entities.RelationAssociated,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, predictType(tc.fv, tc.signals))
		})
	}
}

func TestStrengthMultipliers(t *testing.T) {
	assert.Equal(t, 1.0, strengthMultiplier(entities.RelationFamily))
	assert.Equal(t, 0.9, strengthMultiplier(entities.RelationMentor))
	assert.Equal(t, 0.6, strengthMultiplier(entities.RelationAssociated))
	// Structural types fall back to the associated factor.
	assert.Equal(t, 0.6, strengthMultiplier(entities.RelationMemberOf))
}
