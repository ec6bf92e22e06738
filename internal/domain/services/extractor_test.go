package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/mocks"
)

func newTestEntity(id, sagaID, name string) *entities.Entity {
	return &entities.Entity{
		ID:             id,
		SagaID:         sagaID,
		Name:           name,
		NormalizedName: entities.NormalizeName(name),
		Type:           entities.EntityCharacter,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

func anchor(v float64) *float64 {
	return &v
}

func TestExtractRejectsBadPairs(t *testing.T) {
	store := mocks.NewEntityStore()
	require.NoError(t, store.SaveEntity(context.Background(), newTestEntity("a", "saga1", "Alice")))

	extractor := NewFeatureExtractor(store, nil)
	sc, err := extractor.BuildScopeContext(context.Background(), "saga1")
	require.NoError(t, err)

	t.Run("self-referential pair", func(t *testing.T) {
		_, _, err := extractor.Extract(context.Background(), sc, "a", "a")
		assert.ErrorIs(t, err, entities.ErrValidation)
	})

	t.Run("unknown entity", func(t *testing.T) {
		_, _, err := extractor.Extract(context.Background(), sc, "a", "ghost")
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})
}

func TestExtractOmitsUndefinedFeatures(t *testing.T) {
	store := mocks.NewEntityStore()
	ctx := context.Background()

	// Bare entities: no descriptions, anchors, attributes, or relationships.
	require.NoError(t, store.SaveEntity(ctx, newTestEntity("a", "saga1", "Alice")))
	require.NoError(t, store.SaveEntity(ctx, newTestEntity("b", "saga1", "Bob")))

	extractor := NewFeatureExtractor(store, nil)
	sc, err := extractor.BuildScopeContext(ctx, "saga1")
	require.NoError(t, err)

	fv, _, err := extractor.Extract(ctx, sc, "a", "b")
	require.NoError(t, err)
	assert.Empty(t, fv, "no defined inputs should mean no features, not zeros")
}

func TestExtractTimelineProximity(t *testing.T) {
	store := mocks.NewEntityStore()
	ctx := context.Background()

	a := newTestEntity("a", "saga1", "Alice")
	a.TimelineAnchor = anchor(0)
	b := newTestEntity("b", "saga1", "Bob")
	b.TimelineAnchor = anchor(40)
	c := newTestEntity("c", "saga1", "Carol")
	c.TimelineAnchor = anchor(100)
	d := newTestEntity("d", "saga1", "Dave")

	for _, e := range []*entities.Entity{a, b, c, d} {
		require.NoError(t, store.SaveEntity(ctx, e))
	}

	extractor := NewFeatureExtractor(store, nil)
	sc, err := extractor.BuildScopeContext(ctx, "saga1")
	require.NoError(t, err)

	t.Run("normalized by observed span", func(t *testing.T) {
		fv, _, err := extractor.Extract(ctx, sc, "a", "b")
		require.NoError(t, err)
		v, ok := fv.Get(entities.FeatureTimelineProximity)
		require.True(t, ok)
		assert.InDelta(t, 0.6, v, 1e-9) // 1 - 40/100
	})

	t.Run("widest pair scores zero", func(t *testing.T) {
		fv, _, err := extractor.Extract(ctx, sc, "a", "c")
		require.NoError(t, err)
		v, ok := fv.Get(entities.FeatureTimelineProximity)
		require.True(t, ok)
		assert.InDelta(t, 0, v, 1e-9)
	})

	t.Run("missing anchor omits the feature", func(t *testing.T) {
		fv, _, err := extractor.Extract(ctx, sc, "a", "d")
		require.NoError(t, err)
		assert.False(t, fv.Has(entities.FeatureTimelineProximity))
	})
}

func TestExtractAttributeSimilarity(t *testing.T) {
	store := mocks.NewEntityStore()
	ctx := context.Background()

	a := newTestEntity("a", "saga1", "Alice")
	a.Attributes = map[string]string{"side": "light", "home": "tatooine"}
	b := newTestEntity("b", "saga1", "Bob")
	b.Attributes = map[string]string{"side": "light", "home": "naboo", "rank": "master"}
	c := newTestEntity("c", "saga1", "Carol")

	for _, e := range []*entities.Entity{a, b, c} {
		require.NoError(t, store.SaveEntity(ctx, e))
	}

	extractor := NewFeatureExtractor(store, nil)
	sc, err := extractor.BuildScopeContext(ctx, "saga1")
	require.NoError(t, err)

	t.Run("shared equal keys over union", func(t *testing.T) {
		fv, _, err := extractor.Extract(ctx, sc, "a", "b")
		require.NoError(t, err)
		v, ok := fv.Get(entities.FeatureAttributeSimilarity)
		require.True(t, ok)
		// side matches; home differs; rank only on one side. Union is 3.
		assert.InDelta(t, 1.0/3.0, v, 1e-9)
	})

	t.Run("no attributes omits the feature", func(t *testing.T) {
		fv, _, err := extractor.Extract(ctx, sc, "a", "c")
		require.NoError(t, err)
		assert.False(t, fv.Has(entities.FeatureAttributeSimilarity))
	})
}

func TestExtractSharedFactionAndOpposition(t *testing.T) {
	store := mocks.NewEntityStore()
	ctx := context.Background()

	rebels := newTestEntity("f1", "saga1", "Rebel Alliance")
	rebels.Type = entities.EntityFaction
	rebels.Attributes = map[string]string{entities.AttrOpposes: "Galactic Empire"}
	empire := newTestEntity("f2", "saga1", "Galactic Empire")
	empire.Type = entities.EntityFaction

	luke := newTestEntity("luke", "saga1", "Luke")
	leia := newTestEntity("leia", "saga1", "Leia")
	vader := newTestEntity("vader", "saga1", "Vader")

	for _, e := range []*entities.Entity{rebels, empire, luke, leia, vader} {
		require.NoError(t, store.SaveEntity(ctx, e))
	}
	for _, rel := range []struct{ src, tgt string }{
		{"luke", "f1"}, {"leia", "f1"}, {"vader", "f2"},
	} {
		require.NoError(t, store.CreateRelationship(ctx, &entities.Relationship{
			ID: rel.src + "-" + rel.tgt, SagaID: "saga1",
			SourceEntityID: rel.src, TargetEntityID: rel.tgt,
			Type: entities.RelationMemberOf,
		}))
	}

	extractor := NewFeatureExtractor(store, nil)
	sc, err := extractor.BuildScopeContext(ctx, "saga1")
	require.NoError(t, err)

	t.Run("same faction", func(t *testing.T) {
		fv, signals, err := extractor.Extract(ctx, sc, "luke", "leia")
		require.NoError(t, err)
		v, ok := fv.Get(entities.FeatureSharedFaction)
		require.True(t, ok)
		assert.Equal(t, 1.0, v)
		assert.False(t, signals.OpposingFactions)
	})

	t.Run("opposed factions", func(t *testing.T) {
		fv, signals, err := extractor.Extract(ctx, sc, "luke", "vader")
		require.NoError(t, err)
		v, ok := fv.Get(entities.FeatureSharedFaction)
		require.True(t, ok)
		assert.Equal(t, 0.0, v)
		assert.True(t, signals.OpposingFactions)
	})
}

func TestExtractTypeSignals(t *testing.T) {
	store := mocks.NewEntityStore()
	ctx := context.Background()

	luke := newTestEntity("luke", "saga1", "Luke")
	luke.Attributes = map[string]string{
		entities.AttrFamilyName: "skywalker",
		entities.AttrBirthYear:  "19",
	}
	anakin := newTestEntity("anakin", "saga1", "Anakin")
	anakin.Attributes = map[string]string{
		entities.AttrFamilyName: "skywalker",
		entities.AttrBirthYear:  "-41",
	}

	require.NoError(t, store.SaveEntity(ctx, luke))
	require.NoError(t, store.SaveEntity(ctx, anakin))

	extractor := NewFeatureExtractor(store, nil)
	sc, err := extractor.BuildScopeContext(ctx, "saga1")
	require.NoError(t, err)

	_, signals, err := extractor.Extract(ctx, sc, "luke", "anakin")
	require.NoError(t, err)
	assert.True(t, signals.SharedFamilyName)
	assert.True(t, signals.HasAgeGap)
	assert.Equal(t, 60.0, signals.AgeGap)
}

func TestExtractSemanticSimilarity(t *testing.T) {
	ctx := context.Background()

	buildScope := func(t *testing.T, oracle *mocks.SemanticOracle) (*FeatureExtractor, *ScopeContext) {
		store := mocks.NewEntityStore()
		a := newTestEntity("a", "saga1", "Alice")
		a.Description = "A wandering knight."
		b := newTestEntity("b", "saga1", "Bob")
		b.Description = "A wandering squire."
		require.NoError(t, store.SaveEntity(ctx, a))
		require.NoError(t, store.SaveEntity(ctx, b))

		extractor := NewFeatureExtractor(store, oracle)
		sc, err := extractor.BuildScopeContext(ctx, "saga1")
		require.NoError(t, err)
		return extractor, sc
	}

	t.Run("oracle value is a feature", func(t *testing.T) {
		oracle := &mocks.SemanticOracle{SimilarityResult: 0.73}
		extractor, sc := buildScope(t, oracle)

		fv, _, err := extractor.Extract(ctx, sc, "a", "b")
		require.NoError(t, err)
		v, ok := fv.Get(entities.FeatureSemanticSimilarity)
		require.True(t, ok)
		assert.Equal(t, 0.73, v)
	})

	t.Run("oracle failure only omits the feature", func(t *testing.T) {
		oracle := &mocks.SemanticOracle{Err: errors.New("oracle down")}
		extractor, sc := buildScope(t, oracle)

		fv, _, err := extractor.Extract(ctx, sc, "a", "b")
		require.NoError(t, err)
		assert.False(t, fv.Has(entities.FeatureSemanticSimilarity))
	})
}
