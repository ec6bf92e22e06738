package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ersonp/saga-core/internal/application/handlers"
	"github.com/ersonp/saga-core/internal/domain/ports"
	"github.com/ersonp/saga-core/internal/domain/services"
	"github.com/ersonp/saga-core/internal/infrastructure/config"
	embedder "github.com/ersonp/saga-core/internal/infrastructure/embedder/openai"
	"github.com/ersonp/saga-core/internal/infrastructure/oracle"
	"github.com/ersonp/saga-core/internal/infrastructure/relationaldb/sqlite"
	"github.com/ersonp/saga-core/internal/infrastructure/vectordb/qdrant"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config          *config.Config
	Sagas           *config.SagasConfig
	SagaID          string
	EntityHandler   *handlers.EntityHandler
	SuggestHandler  *handlers.SuggestHandler
	FeedbackHandler *handlers.FeedbackHandler
	JobsHandler     *handlers.JobsHandler
}

// internalDeps holds all dependencies including low-level components.
type internalDeps struct {
	Deps
	db    *sqlite.Repository
	cache ports.VectorDB
}

// withDeps loads config and builds dependencies, then calls the provided
// function. It handles cleanup automatically.
func withDeps(fn func(*Deps) error) error {
	return withInternalDeps(func(d *internalDeps) error {
		return fn(&d.Deps)
	})
}

// withInternalDeps provides access to all dependencies including low-level
// components.
func withInternalDeps(fn func(*internalDeps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	sagas, err := config.LoadSagas(cwd)
	if err != nil {
		return fmt.Errorf("loading sagas: %w", err)
	}

	if globalSaga == "" {
		return errors.New("saga is required (use --saga flag)")
	}
	if _, err := sagas.Get(globalSaga); err != nil {
		return err
	}
	sagaID := config.SanitizeSagaName(globalSaga)

	sqlitePath := config.SQLitePathForSaga(cwd, globalSaga)
	db, err := sqlite.NewRepository(config.SQLiteConfig{Path: sqlitePath})
	if err != nil {
		return fmt.Errorf("creating sqlite repository: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	semanticOracle, cache := buildOracle(ctx, cfg, sagas, cwd)

	extractor := services.NewFeatureExtractor(db, semanticOracle)
	scorer := services.NewScorer(db, cfg.Engine)
	learner := services.NewLearningEngine(db, cfg.Engine)
	orchestrator := services.NewOrchestrator(db, db, extractor, scorer, cfg.Engine)
	feedbackService := services.NewFeedbackService(db, learner)

	deps := &internalDeps{
		Deps: Deps{
			Config:          cfg,
			Sagas:           sagas,
			SagaID:          sagaID,
			EntityHandler:   handlers.NewEntityHandler(db),
			SuggestHandler:  handlers.NewSuggestHandler(orchestrator, db, db),
			FeedbackHandler: handlers.NewFeedbackHandler(feedbackService),
			JobsHandler:     handlers.NewJobsHandler(orchestrator),
		},
		db:    db,
		cache: cache,
	}

	err = fn(deps)
	if cache != nil {
		_ = cache.Close()
	}
	return err
}

// buildOracle wires the semantic-similarity oracle when an embedder is
// configured. The oracle is optional: without it generation still runs and
// only the semantic_similarity feature is omitted. The Qdrant cache degrades
// the same way.
func buildOracle(ctx context.Context, cfg *config.Config, sagas *config.SagasConfig, cwd string) (ports.SemanticOracle, ports.VectorDB) {
	if cfg.Embedder.APIKey == "" {
		return nil, nil
	}

	emb, err := embedder.NewEmbedder(cfg.Embedder)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: semantic oracle disabled: %v\n", err)
		return nil, nil
	}

	var cache ports.VectorDB
	collection, err := sagas.GetCollection(globalSaga)
	if err == nil {
		qdrantCfg := cfg.Qdrant
		qdrantCfg.Collection = collection
		repo, err := qdrant.NewRepository(qdrantCfg)
		if err == nil {
			if err := repo.EnsureCollection(ctx, embedder.VectorSize); err == nil {
				cache = repo
			} else {
				_ = repo.Close()
				fmt.Fprintf(os.Stderr, "warning: embedding cache disabled: %v\n", err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "warning: embedding cache disabled: %v\n", err)
		}
	}

	return oracle.New(emb, cache, cfg.Engine.OracleTimeout), cache
}
