package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/saga-core/internal/application/handlers"
	"github.com/ersonp/saga-core/internal/domain/entities"
)

func TestPipelineGenerateReviewLearn(t *testing.T) {
	h := newHarness(t)
	h.seedSaga(t)
	ctx := context.Background()

	// Generate.
	job, err := h.suggest.HandleGenerate(ctx, testSagaID)
	require.NoError(t, err)
	assert.Equal(t, entities.JobCompleted, job.Status)
	assert.Equal(t, 3, job.PairsTotal)
	assert.Equal(t, 1, job.SuggestionsCreated)

	// Review queue.
	list, err := h.suggest.HandleList(ctx, testSagaID, handlers.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list.Suggestions, 1)
	assert.Equal(t, 1, list.Total)

	sugg := list.Suggestions[0]
	assert.Equal(t, entities.RelationMentor, sugg.SuggestedType)
	assert.Equal(t, entities.StatusPending, sugg.Status)
	assert.GreaterOrEqual(t, sugg.Confidence, 40.0)
	assert.NotEmpty(t, sugg.Reasoning)

	// Detail joins the entities.
	detail, err := h.suggest.HandleShow(ctx, sugg.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Source)
	require.NotNil(t, detail.Target)
	names := []string{detail.Source.Name, detail.Target.Name}
	assert.ElementsMatch(t, []string{"Luke", "Obi-Wan"}, names)

	// Accept.
	result, err := h.feedback.Handle(ctx, sugg.ID, "accept", handlers.FeedbackOptions{Note: "fits the story"})
	require.NoError(t, err)
	assert.Equal(t, entities.StatusAccepted, result.Status)
	require.NotEmpty(t, result.RelationshipID)

	// The relationship shows up on the entity.
	shown, err := h.entities.HandleShow(ctx, testSagaID, "Luke")
	require.NoError(t, err)
	found := false
	for _, rel := range shown.Relationships {
		if rel.ID == result.RelationshipID {
			found = true
			assert.Equal(t, entities.RelationMentor, rel.Type)
		}
	}
	assert.True(t, found, "accepted suggestion must materialize on the entity")

	// The decision fed the global weight pool.
	_, global, err := h.suggest.HandleWeights(ctx, testSagaID)
	require.NoError(t, err)
	require.NotEmpty(t, global)
	for _, w := range global {
		assert.Equal(t, 1, w.SampleCount)
	}

	// A second decision on the same suggestion conflicts.
	_, err = h.feedback.Handle(ctx, sugg.ID, "reject", handlers.FeedbackOptions{})
	assert.ErrorIs(t, err, entities.ErrConflict)

	// Job status reflects the finished run.
	status, err := h.jobs.HandleStatus(ctx, testSagaID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, status.ID)
	assert.Equal(t, entities.JobCompleted, status.Status)
}

func TestPipelineRerunIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.seedSaga(t)
	ctx := context.Background()

	_, err := h.suggest.HandleGenerate(ctx, testSagaID)
	require.NoError(t, err)

	job, err := h.suggest.HandleGenerate(ctx, testSagaID)
	require.NoError(t, err)
	assert.Equal(t, entities.JobCompleted, job.Status)
	assert.Equal(t, 0, job.SuggestionsCreated)

	list, err := h.suggest.HandleList(ctx, testSagaID, handlers.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
}

func TestPipelineRateLimit(t *testing.T) {
	h := newHarness(t)
	h.seedSaga(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := h.suggest.HandleGenerate(ctx, testSagaID)
		require.NoError(t, err)
	}

	_, err := h.suggest.HandleGenerate(ctx, testSagaID)
	assert.ErrorIs(t, err, entities.ErrRateLimited)
}

func TestPipelineImportThenGenerate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	input := `[
		{"name": "Luke", "type": "character", "importance": 0.9, "timeline_anchor": 10,
		 "description": "Luke trained under Obi-Wan in the desert.",
		 "attributes": {"side": "light"}},
		{"name": "Obi-Wan", "type": "character", "importance": 0.9, "timeline_anchor": 10,
		 "description": "Obi-Wan mentored Luke for years.",
		 "attributes": {"side": "light"}},
		{"name": "Rebel Alliance", "type": "faction"}
	]`
	path := filepath.Join(t.TempDir(), "entities.json")
	require.NoError(t, os.WriteFile(path, []byte(input), 0644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	result, err := h.entities.HandleImport(ctx, testSagaID, path, f)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 0, result.Updated)

	for _, member := range []string{"Luke", "Obi-Wan"} {
		_, err = h.entities.HandleRelate(ctx, testSagaID, member, "member_of", "Rebel Alliance", 80)
		require.NoError(t, err)
	}

	job, err := h.suggest.HandleGenerate(ctx, testSagaID)
	require.NoError(t, err)
	assert.Equal(t, entities.JobCompleted, job.Status)
	assert.Equal(t, 1, job.SuggestionsCreated)
}
