// Package integration exercises the suggestion pipeline end to end through
// the application handlers, backed by a real SQLite database. The Qdrant
// tests additionally need a running Qdrant instance and are gated behind
// INTEGRATION_TEST=1.
package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ersonp/saga-core/internal/application/handlers"
	"github.com/ersonp/saga-core/internal/domain/services"
	"github.com/ersonp/saga-core/internal/infrastructure/config"
	"github.com/ersonp/saga-core/internal/infrastructure/relationaldb/sqlite"
)

const testSagaID = "integration_saga"

// harness wires the full handler stack over a throwaway SQLite database.
type harness struct {
	repo     *sqlite.Repository
	entities *handlers.EntityHandler
	suggest  *handlers.SuggestHandler
	feedback *handlers.FeedbackHandler
	jobs     *handlers.JobsHandler
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "saga.db")})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.EnsureSchema(context.Background()))

	cfg := config.Default().Engine
	cfg.BatchPause = 0

	extractor := services.NewFeatureExtractor(repo, nil)
	scorer := services.NewScorer(repo, cfg)
	orchestrator := services.NewOrchestrator(repo, repo, extractor, scorer, cfg)
	feedbackSvc := services.NewFeedbackService(repo, services.NewLearningEngine(repo, cfg))

	return &harness{
		repo:     repo,
		entities: handlers.NewEntityHandler(repo),
		suggest:  handlers.NewSuggestHandler(orchestrator, repo, repo),
		feedback: handlers.NewFeedbackHandler(feedbackSvc),
		jobs:     handlers.NewJobsHandler(orchestrator),
	}
}

// seedSaga adds two closely linked characters and their faction so a
// generation run produces exactly one reviewable suggestion.
func (h *harness) seedSaga(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	anchor := 10.0
	_, err := h.entities.HandleAdd(ctx, testSagaID, "Luke", handlers.AddOptions{
		Type:           "character",
		Description:    "Luke trained under Obi-Wan in the desert.",
		Importance:     0.9,
		TimelineAnchor: &anchor,
		Attributes:     map[string]string{"side": "light"},
	})
	require.NoError(t, err)

	_, err = h.entities.HandleAdd(ctx, testSagaID, "Obi-Wan", handlers.AddOptions{
		Type:           "character",
		Description:    "Obi-Wan mentored Luke for years.",
		Importance:     0.9,
		TimelineAnchor: &anchor,
		Attributes:     map[string]string{"side": "light"},
	})
	require.NoError(t, err)

	_, err = h.entities.HandleAdd(ctx, testSagaID, "Rebel Alliance", handlers.AddOptions{
		Type: "faction",
	})
	require.NoError(t, err)

	for _, member := range []string{"Luke", "Obi-Wan"} {
		_, err = h.entities.HandleRelate(ctx, testSagaID, member, "member_of", "Rebel Alliance", 80)
		require.NoError(t, err)
	}
}
