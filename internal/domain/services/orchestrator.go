package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/ports"
	"github.com/ersonp/saga-core/internal/infrastructure/config"
)

// Orchestrator runs batch suggestion-generation jobs: it enumerates unscored
// candidate pairs, extracts and scores them in batches, and keeps the durable
// job row current so progress and cancellation survive restarts.
type Orchestrator struct {
	store     ports.EntityStore
	db        ports.SuggestionDB
	extractor *FeatureExtractor
	scorer    *Scorer
	cfg       config.EngineConfig
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(store ports.EntityStore, db ports.SuggestionDB, extractor *FeatureExtractor, scorer *Scorer, cfg config.EngineConfig) *Orchestrator {
	return &Orchestrator{
		store:     store,
		db:        db,
		extractor: extractor,
		scorer:    scorer,
		cfg:       cfg,
	}
}

// StartBatch enqueues a generation job for a saga. Fails with
// entities.ErrRateLimited when the rolling-hour start budget is spent, and
// with entities.ErrConflict when the saga already has an active job.
func (o *Orchestrator) StartBatch(ctx context.Context, sagaID string) (*entities.BatchJob, error) {
	recent, err := o.db.CountJobsSince(ctx, sagaID, time.Now().Add(-time.Hour))
	if err != nil {
		return nil, fmt.Errorf("checking rate limit: %w", err)
	}
	if recent >= o.cfg.RateLimitPerHour {
		return nil, fmt.Errorf("%w: %d jobs started in the last hour (limit %d)",
			entities.ErrRateLimited, recent, o.cfg.RateLimitPerHour)
	}

	active, err := o.db.FindActiveJob(ctx, sagaID)
	if err != nil {
		return nil, fmt.Errorf("checking active job: %w", err)
	}
	if active != nil {
		return nil, fmt.Errorf("%w: job %s is %s", entities.ErrConflict, active.ID, active.Status)
	}

	job := &entities.BatchJob{
		ID:        uuid.New().String(),
		SagaID:    sagaID,
		Status:    entities.JobQueued,
		CreatedAt: time.Now(),
	}
	if err := o.db.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Run executes a queued job to completion. Cancellation is observed between
// batches: a cancelled job returns nil and keeps the suggestions already
// written. A batch exceeding its timeout fails the job with
// entities.ErrJobFailed.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	job, err := o.db.FindJobByID(ctx, jobID)
	if err != nil {
		return err
	}

	claimed, err := o.db.ClaimJob(ctx, jobID, time.Now())
	if err != nil {
		return err
	}
	if !claimed {
		return fmt.Errorf("%w: job %s is not queued", entities.ErrConflict, jobID)
	}

	pairs, err := o.candidatePairs(ctx, job.SagaID)
	if err != nil {
		return o.fail(ctx, jobID, err)
	}

	sc, err := o.extractor.BuildScopeContext(ctx, job.SagaID)
	if err != nil {
		return o.fail(ctx, jobID, err)
	}

	total := len(pairs)
	processed, created := 0, 0
	if err := o.db.UpdateJobProgress(ctx, jobID, total, processed, created); err != nil {
		return o.fail(ctx, jobID, err)
	}

	for start := 0; start < total; start += o.batchSize() {
		cancelled, err := o.isCancelled(ctx, jobID)
		if err != nil {
			return o.fail(ctx, jobID, err)
		}
		if cancelled {
			return nil
		}

		end := start + o.batchSize()
		if end > total {
			end = total
		}

		batchCreated, err := o.runBatch(ctx, sc, pairs[start:end])
		if err != nil {
			return o.fail(ctx, jobID, err)
		}
		processed += end - start
		created += batchCreated

		if err := o.db.UpdateJobProgress(ctx, jobID, total, processed, created); err != nil {
			return o.fail(ctx, jobID, err)
		}

		if end < total && o.cfg.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return o.fail(ctx, jobID, ctx.Err())
			case <-time.After(o.cfg.BatchPause):
			}
		}
	}

	return o.db.FinishJob(ctx, jobID, entities.JobCompleted, "", time.Now())
}

// runBatch scores one slice of pairs under the batch wall-clock budget.
func (o *Orchestrator) runBatch(ctx context.Context, sc *ScopeContext, pairs [][2]string) (int, error) {
	if o.cfg.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.BatchTimeout)
		defer cancel()
	}

	created := 0
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return created, fmt.Errorf("%w: batch exceeded %s", entities.ErrJobFailed, o.cfg.BatchTimeout)
			}
			return created, err
		}

		didCreate, err := o.processPair(ctx, sc, pair[0], pair[1])
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return created, fmt.Errorf("%w: batch exceeded %s", entities.ErrJobFailed, o.cfg.BatchTimeout)
			}
			return created, err
		}
		if didCreate {
			created++
		}
	}
	return created, nil
}

// processPair extracts, scores, and persists one candidate pair. Pairs with an
// empty feature vector or a confidence below the floor are skipped silently.
func (o *Orchestrator) processPair(ctx context.Context, sc *ScopeContext, aID, bID string) (bool, error) {
	fv, signals, err := o.extractor.Extract(ctx, sc, aID, bID)
	if err != nil {
		return false, err
	}
	if len(fv) == 0 {
		return false, nil
	}

	sugg, err := o.scorer.Score(ctx, sc.SagaID, sc.byID[aID], sc.byID[bID], fv, signals)
	if err != nil || sugg == nil {
		return false, err
	}
	if sugg.Confidence < o.cfg.MinConfidence {
		return false, nil
	}

	autoAccept := o.cfg.AutoAccept() && sugg.Confidence >= o.cfg.AutoAcceptThreshold
	var rel *entities.Relationship
	if autoAccept {
		// The relationship ID is minted before the upsert so the suggestion
		// row links it; the row is only written if the upsert created.
		rel = &entities.Relationship{
			ID:             uuid.New().String(),
			SagaID:         sc.SagaID,
			SourceEntityID: sugg.SourceEntityID,
			TargetEntityID: sugg.TargetEntityID,
			Type:           sugg.SuggestedType,
			Strength:       sugg.Strength,
			CreatedAt:      time.Now(),
		}
		sugg.Status = entities.StatusAutoAccepted
		sugg.CreatedRelationshipID = &rel.ID
	}

	inserted, err := o.db.UpsertSuggestion(ctx, sugg)
	if err != nil {
		return false, err
	}
	if !inserted {
		return false, nil
	}

	if autoAccept {
		if err := o.store.CreateRelationship(ctx, rel); err != nil {
			return true, fmt.Errorf("materializing auto-accepted relationship: %w", err)
		}
	}
	return true, nil
}

// candidatePairs enumerates unordered entity pairs in canonical order,
// excluding pairs that already hold a non-dismissed suggestion, so reruns are
// idempotent.
func (o *Orchestrator) candidatePairs(ctx context.Context, sagaID string) ([][2]string, error) {
	ents, err := o.store.ListEntitiesInScope(ctx, sagaID)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}

	existing, err := o.db.ListSuggestedPairs(ctx, sagaID)
	if err != nil {
		return nil, fmt.Errorf("listing suggested pairs: %w", err)
	}

	var pairs [][2]string
	for i := 0; i < len(ents); i++ {
		for j := i + 1; j < len(ents); j++ {
			src, tgt := entities.CanonicalPair(ents[i].ID, ents[j].ID)
			if existing[src+"|"+tgt] {
				continue
			}
			pairs = append(pairs, [2]string{src, tgt})
		}
	}
	return pairs, nil
}

// isCancelled re-reads the job row between batches.
func (o *Orchestrator) isCancelled(ctx context.Context, jobID string) (bool, error) {
	job, err := o.db.FindJobByID(ctx, jobID)
	if err != nil {
		return false, err
	}
	return job.Status == entities.JobCancelled, nil
}

// fail moves the job to failed with the error as reason, then returns the
// error wrapped as a job failure. A concurrent cancel wins; FinishJob only
// touches running rows.
func (o *Orchestrator) fail(ctx context.Context, jobID string, cause error) error {
	if err := o.db.FinishJob(ctx, jobID, entities.JobFailed, cause.Error(), time.Now()); err != nil {
		return errors.Join(cause, err)
	}
	if errors.Is(cause, entities.ErrJobFailed) {
		return cause
	}
	return fmt.Errorf("%w: %v", entities.ErrJobFailed, cause)
}

// Cancel marks the saga's active job cancelled. Returns entities.ErrNotFound
// when no active job exists.
func (o *Orchestrator) Cancel(ctx context.Context, sagaID string) error {
	cancelled, err := o.db.CancelJob(ctx, sagaID)
	if err != nil {
		return err
	}
	if !cancelled {
		return fmt.Errorf("%w: no active job for saga %s", entities.ErrNotFound, sagaID)
	}
	return nil
}

// Progress returns the saga's most recent job, or nil when none was ever run.
func (o *Orchestrator) Progress(ctx context.Context, sagaID string) (*entities.BatchJob, error) {
	return o.db.FindLatestJob(ctx, sagaID)
}

func (o *Orchestrator) batchSize() int {
	if o.cfg.BatchSize <= 0 {
		return 1
	}
	return o.cfg.BatchSize
}
