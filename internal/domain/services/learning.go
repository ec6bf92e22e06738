package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/ports"
	"github.com/ersonp/saga-core/internal/infrastructure/config"
)

// weightRetries bounds the compare-and-swap retry loop for one weight row.
const weightRetries = 5

// modifyTypeMatch and modifyTypeMismatch grade a modify correction: keeping
// the suggested type counts as a near-accept, changing it as a weak one.
const (
	modifyTypeMatch    = 1.0
	modifyTypeMismatch = 0.25
)

// LearningEngine applies online weight updates from reviewer feedback. Updates
// read only the feature snapshot frozen on the feedback entry, so later entity
// edits never bias past decisions.
type LearningEngine struct {
	db  ports.SuggestionDB
	cfg config.EngineConfig
}

// NewLearningEngine creates a new LearningEngine.
func NewLearningEngine(db ports.SuggestionDB, cfg config.EngineConfig) *LearningEngine {
	return &LearningEngine{
		db:  db,
		cfg: cfg,
	}
}

// Apply updates weights for every feature in the feedback snapshot. The global
// pool always learns; the saga's rows accumulate samples on every event but
// only shadow the global pool once graduated past MinWeightSamples.
func (l *LearningEngine) Apply(ctx context.Context, sagaID string, fb *entities.Feedback, suggestedType entities.RelationType) error {
	errTerm := l.errorTerm(fb, suggestedType)
	accepted, rejected := feedbackCounts(fb.Action)

	for _, f := range fb.Features {
		if err := l.updateRow(ctx, entities.GlobalScope, f, errTerm, true, accepted, rejected); err != nil {
			return fmt.Errorf("updating global weight %s: %w", f.Type, err)
		}
		if err := l.updateRow(ctx, sagaID, f, errTerm, false, accepted, rejected); err != nil {
			return fmt.Errorf("updating saga weight %s: %w", f.Type, err)
		}
	}
	return nil
}

// errorTerm maps a feedback action to the signed learning signal.
func (l *LearningEngine) errorTerm(fb *entities.Feedback, suggestedType entities.RelationType) float64 {
	switch fb.Action {
	case entities.ActionAccept:
		return 1
	case entities.ActionReject:
		return -1
	case entities.ActionModify:
		match := modifyTypeMismatch
		if fb.CorrectedType != nil && *fb.CorrectedType == suggestedType {
			match = modifyTypeMatch
		}
		return 0.5 * match
	default: // dismiss carries no signal
		return 0
	}
}

func feedbackCounts(action entities.FeedbackAction) (accepted, rejected int) {
	switch action {
	case entities.ActionAccept, entities.ActionModify:
		return 1, 0
	case entities.ActionReject:
		return 0, 1
	}
	return 0, 0
}

// updateRow applies one gradient step to one weight row with a CAS retry loop.
// always=false is the saga path: sample counts accumulate on every event, but
// the weight itself moves only once the row has graduated.
func (l *LearningEngine) updateRow(ctx context.Context, scope string, f entities.Feature, errTerm float64, always bool, accepted, rejected int) error {
	for attempt := 0; attempt < weightRetries; attempt++ {
		w, err := l.db.GetWeight(ctx, scope, f.Type, "")
		if err != nil {
			return err
		}
		if w == nil {
			w = entities.NewWeightVector(scope, f.Type)
		}

		w.SampleCount++
		w.AcceptedCount += accepted
		w.RejectedCount += rejected
		w.AccuracyScore = w.Accuracy()

		if always || w.SampleCount >= l.cfg.MinWeightSamples {
			delta := l.cfg.LearningRate * errTerm * f.Value
			w.Weight = clampWeight(w.Weight + delta)
		}
		w.UpdatedAt = time.Now()

		err = l.db.SaveWeight(ctx, w)
		if err == nil {
			return nil
		}
		if !errors.Is(err, entities.ErrConflict) {
			return err
		}
		// Lost the CAS race; re-read and retry on the fresh version.
	}
	return fmt.Errorf("weight %s/%s: %w after %d attempts", scope, f.Type, entities.ErrConflict, weightRetries)
}

func clampWeight(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
