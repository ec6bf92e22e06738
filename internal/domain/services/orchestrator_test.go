package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/mocks"
	"github.com/ersonp/saga-core/internal/domain/ports"
	"github.com/ersonp/saga-core/internal/infrastructure/config"
)

// seedSaga builds a small scope where exactly one pair (Luke, Obi-Wan) scores
// above the default confidence floor.
func seedSaga(t *testing.T, store *mocks.EntityStore, sagaID string) {
	t.Helper()
	ctx := context.Background()

	luke := newTestEntity(sagaID+"-luke", sagaID, "Luke")
	luke.Description = "Luke trained under Obi-Wan in the desert."
	luke.Importance = 0.9
	luke.TimelineAnchor = anchor(10)
	luke.Attributes = map[string]string{"side": "light"}

	obiwan := newTestEntity(sagaID+"-obiwan", sagaID, "Obi-Wan")
	obiwan.Description = "Obi-Wan mentored Luke for years."
	obiwan.Importance = 0.9
	obiwan.TimelineAnchor = anchor(10)
	obiwan.Attributes = map[string]string{"side": "light"}

	rebels := newTestEntity(sagaID+"-rebels", sagaID, "Rebel Alliance")
	rebels.Type = entities.EntityFaction

	for _, e := range []*entities.Entity{luke, obiwan, rebels} {
		require.NoError(t, store.SaveEntity(ctx, e))
	}
	for _, member := range []string{sagaID + "-luke", sagaID + "-obiwan"} {
		require.NoError(t, store.CreateRelationship(ctx, &entities.Relationship{
			ID: member + "-membership", SagaID: sagaID,
			SourceEntityID: member, TargetEntityID: sagaID + "-rebels",
			Type: entities.RelationMemberOf,
		}))
	}
}

func newTestOrchestrator(store *mocks.EntityStore, db *mocks.SuggestionDB, cfg config.EngineConfig) *Orchestrator {
	cfg.BatchPause = 0
	extractor := NewFeatureExtractor(store, nil)
	scorer := NewScorer(db, cfg)
	return NewOrchestrator(store, db, extractor, scorer, cfg)
}

func TestRunGeneratesSuggestions(t *testing.T) {
	store := mocks.NewEntityStore()
	db := mocks.NewSuggestionDB()
	seedSaga(t, store, "saga1")

	orch := newTestOrchestrator(store, db, testEngineConfig())
	ctx := context.Background()

	job, err := orch.StartBatch(ctx, "saga1")
	require.NoError(t, err)
	require.NoError(t, orch.Run(ctx, job.ID))

	done, err := db.FindJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.JobCompleted, done.Status)
	assert.Equal(t, 3, done.PairsTotal) // C(3,2)
	assert.Equal(t, 3, done.PairsProcessed)
	assert.Equal(t, 1, done.SuggestionsCreated)

	count, err := db.CountSuggestions(ctx, "saga1", ports.SuggestionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	for _, s := range db.Suggestions {
		assert.Equal(t, entities.RelationMentor, s.SuggestedType)
		assert.Equal(t, entities.StatusPending, s.Status)
		assert.GreaterOrEqual(t, s.Confidence, 40.0)
		assert.Less(t, s.SourceEntityID, s.TargetEntityID)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store := mocks.NewEntityStore()
	db := mocks.NewSuggestionDB()
	seedSaga(t, store, "saga1")

	orch := newTestOrchestrator(store, db, testEngineConfig())
	ctx := context.Background()

	job1, err := orch.StartBatch(ctx, "saga1")
	require.NoError(t, err)
	require.NoError(t, orch.Run(ctx, job1.ID))

	job2, err := orch.StartBatch(ctx, "saga1")
	require.NoError(t, err)
	require.NoError(t, orch.Run(ctx, job2.ID))

	done, err := db.FindJobByID(ctx, job2.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.JobCompleted, done.Status)
	assert.Equal(t, 0, done.SuggestionsCreated, "rerun must not duplicate suggestions")

	count, err := db.CountSuggestions(ctx, "saga1", ports.SuggestionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStartBatchRateLimit(t *testing.T) {
	store := mocks.NewEntityStore()
	db := mocks.NewSuggestionDB()
	ctx := context.Background()
	cfg := testEngineConfig()

	// Exhaust the rolling-hour budget with finished jobs.
	for i := 0; i < cfg.RateLimitPerHour; i++ {
		require.NoError(t, db.CreateJob(ctx, &entities.BatchJob{
			ID: string(rune('a' + i)), SagaID: "saga1",
			Status: entities.JobCompleted, CreatedAt: time.Now(),
		}))
	}

	orch := newTestOrchestrator(store, db, cfg)

	_, err := orch.StartBatch(ctx, "saga1")
	assert.ErrorIs(t, err, entities.ErrRateLimited)

	// Another saga is unaffected.
	_, err = orch.StartBatch(ctx, "saga2")
	assert.NoError(t, err)
}

func TestStartBatchSingleActiveJob(t *testing.T) {
	store := mocks.NewEntityStore()
	db := mocks.NewSuggestionDB()
	seedSaga(t, store, "saga1")

	orch := newTestOrchestrator(store, db, testEngineConfig())
	ctx := context.Background()

	_, err := orch.StartBatch(ctx, "saga1")
	require.NoError(t, err)

	_, err = orch.StartBatch(ctx, "saga1")
	assert.ErrorIs(t, err, entities.ErrConflict)
	assert.NotErrorIs(t, err, entities.ErrRateLimited)
}

func TestCancel(t *testing.T) {
	store := mocks.NewEntityStore()
	db := mocks.NewSuggestionDB()
	seedSaga(t, store, "saga1")

	orch := newTestOrchestrator(store, db, testEngineConfig())
	ctx := context.Background()

	t.Run("no active job", func(t *testing.T) {
		err := orch.Cancel(ctx, "saga1")
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})

	t.Run("cancelled before running never executes", func(t *testing.T) {
		job, err := orch.StartBatch(ctx, "saga1")
		require.NoError(t, err)
		require.NoError(t, orch.Cancel(ctx, "saga1"))

		err = orch.Run(ctx, job.ID)
		assert.ErrorIs(t, err, entities.ErrConflict)

		got, err := db.FindJobByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.JobCancelled, got.Status)
	})
}

func TestRunObservesCancellationBetweenBatches(t *testing.T) {
	store := mocks.NewEntityStore()
	db := mocks.NewSuggestionDB()
	seedSaga(t, store, "saga1")

	cfg := testEngineConfig()
	cfg.BatchSize = 1 // three pairs, three batches
	orch := newTestOrchestrator(store, db, cfg)
	ctx := context.Background()

	job, err := orch.StartBatch(ctx, "saga1")
	require.NoError(t, err)

	// Claim and run the first batch by hand, then cancel before the rest.
	claimed, err := db.ClaimJob(ctx, job.ID, time.Now())
	require.NoError(t, err)
	require.True(t, claimed)
	_, err = db.CancelJob(ctx, "saga1")
	require.NoError(t, err)

	cancelled, err := orch.isCancelled(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, cancelled)

	// A late finish must not resurrect the cancelled job.
	require.NoError(t, db.FinishJob(ctx, job.ID, entities.JobCompleted, "", time.Now()))
	got, err := db.FindJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.JobCancelled, got.Status)
}

func TestRunAutoAccept(t *testing.T) {
	ctx := context.Background()

	run := func(t *testing.T, cfg config.EngineConfig) (*mocks.EntityStore, *mocks.SuggestionDB) {
		store := mocks.NewEntityStore()
		db := mocks.NewSuggestionDB()
		seedSaga(t, store, "saga1")

		orch := newTestOrchestrator(store, db, cfg)
		job, err := orch.StartBatch(ctx, "saga1")
		require.NoError(t, err)
		require.NoError(t, orch.Run(ctx, job.ID))
		return store, db
	}

	t.Run("at threshold the relationship materializes", func(t *testing.T) {
		cfg := testEngineConfig()
		cfg.AutoAcceptThreshold = 60 // below the pair's confidence
		store, db := run(t, cfg)

		var sugg *entities.Suggestion
		for _, s := range db.Suggestions {
			sugg = s
		}
		require.NotNil(t, sugg)
		assert.Equal(t, entities.StatusAutoAccepted, sugg.Status)
		require.NotNil(t, sugg.CreatedRelationshipID)

		found := false
		for _, rel := range store.Relationships {
			if rel.ID == *sugg.CreatedRelationshipID {
				found = true
				assert.Equal(t, sugg.SuggestedType, rel.Type)
				assert.Equal(t, sugg.Strength, rel.Strength)
			}
		}
		assert.True(t, found, "auto-accept must create the relationship")
	})

	t.Run("threshold comparison is inclusive", func(t *testing.T) {
		// Probe the pair's exact confidence, then pin the threshold to it.
		_, probe := run(t, testEngineConfig())
		var conf float64
		for _, s := range probe.Suggestions {
			conf = s.Confidence
		}
		require.Greater(t, conf, 0.0)

		cfg := testEngineConfig()
		cfg.AutoAcceptThreshold = conf
		_, db := run(t, cfg)
		for _, s := range db.Suggestions {
			assert.Equal(t, entities.StatusAutoAccepted, s.Status)
		}

		cfg.AutoAcceptThreshold = conf + 0.01
		_, db = run(t, cfg)
		for _, s := range db.Suggestions {
			assert.Equal(t, entities.StatusPending, s.Status)
		}
	})

	t.Run("below threshold stays pending", func(t *testing.T) {
		cfg := testEngineConfig()
		_, db := run(t, cfg) // default threshold 95
		for _, s := range db.Suggestions {
			assert.Equal(t, entities.StatusPending, s.Status)
			assert.Nil(t, s.CreatedRelationshipID)
		}
	})

	t.Run("disabled auto-accept wins over threshold", func(t *testing.T) {
		cfg := testEngineConfig()
		cfg.AutoAcceptThreshold = 60
		disabled := false
		cfg.AutoAcceptEnabled = &disabled
		store, db := run(t, cfg)

		for _, s := range db.Suggestions {
			assert.Equal(t, entities.StatusPending, s.Status)
		}
		// Only the seeded memberships exist.
		assert.Len(t, store.Relationships, 2)
	})
}

func TestRunConfidenceFloor(t *testing.T) {
	store := mocks.NewEntityStore()
	db := mocks.NewSuggestionDB()
	seedSaga(t, store, "saga1")

	cfg := testEngineConfig()
	cfg.MinConfidence = 99 // nothing clears it
	orch := newTestOrchestrator(store, db, cfg)
	ctx := context.Background()

	job, err := orch.StartBatch(ctx, "saga1")
	require.NoError(t, err)
	require.NoError(t, orch.Run(ctx, job.ID))

	done, err := db.FindJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.JobCompleted, done.Status)
	assert.Equal(t, 0, done.SuggestionsCreated)
}

func TestProgress(t *testing.T) {
	store := mocks.NewEntityStore()
	db := mocks.NewSuggestionDB()
	seedSaga(t, store, "saga1")

	orch := newTestOrchestrator(store, db, testEngineConfig())
	ctx := context.Background()

	job, err := orch.Progress(ctx, "saga1")
	require.NoError(t, err)
	assert.Nil(t, job)

	started, err := orch.StartBatch(ctx, "saga1")
	require.NoError(t, err)
	require.NoError(t, orch.Run(ctx, started.ID))

	job, err = orch.Progress(ctx, "saga1")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, started.ID, job.ID)
	assert.Equal(t, entities.JobCompleted, job.Status)
}
