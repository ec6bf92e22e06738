package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/ports"
)

// FeedbackService records reviewer decisions. Each submission atomically
// transitions the suggestion, appends the immutable feedback entry,
// materializes the relationship for accept/modify, and then feeds the learning
// engine.
type FeedbackService struct {
	db      ports.SuggestionDB
	learner *LearningEngine
}

// NewFeedbackService creates a new FeedbackService.
func NewFeedbackService(db ports.SuggestionDB, learner *LearningEngine) *FeedbackService {
	return &FeedbackService{
		db:      db,
		learner: learner,
	}
}

// FeedbackResult reports the outcome of one submission.
type FeedbackResult struct {
	Status         entities.SuggestionStatus
	RelationshipID string // set on accept and modify
}

// SubmitFeedback applies one reviewer decision to a pending suggestion. A
// suggestion already actioned fails with entities.ErrConflict; invalid
// corrections fail with entities.ErrValidation before anything is written.
func (s *FeedbackService) SubmitFeedback(ctx context.Context, suggestionID string, action entities.FeedbackAction, correctedType *entities.RelationType, correctedStrength *int, note string) (*FeedbackResult, error) {
	if err := validateCorrections(action, correctedType, correctedStrength); err != nil {
		return nil, err
	}

	sugg, err := s.db.FindSuggestionByID(ctx, suggestionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	fb := &entities.Feedback{
		ID:                uuid.New().String(),
		SuggestionID:      sugg.ID,
		Action:            action,
		CorrectedType:     correctedType,
		CorrectedStrength: correctedStrength,
		Note:              note,
		Features:          sugg.Features,
		DecisionLatency:   now.Sub(sugg.CreatedAt),
		CreatedAt:         now,
	}

	relID, err := s.db.RecordFeedback(ctx, fb, action.Status(), relationshipFor(sugg, action, correctedType, correctedStrength))
	if err != nil {
		return nil, err
	}

	if err := s.learner.Apply(ctx, sugg.SagaID, fb, sugg.SuggestedType); err != nil {
		return nil, fmt.Errorf("applying weight updates: %w", err)
	}

	return &FeedbackResult{
		Status:         action.Status(),
		RelationshipID: relID,
	}, nil
}

// validateCorrections enforces the correction rules per action: modify
// requires at least one correction; accept, reject, and dismiss take none.
func validateCorrections(action entities.FeedbackAction, correctedType *entities.RelationType, correctedStrength *int) error {
	if correctedType != nil {
		if _, ok := entities.ParseRelationType(string(*correctedType)); !ok {
			return fmt.Errorf("%w: unknown relationship type %q", entities.ErrValidation, *correctedType)
		}
	}
	if correctedStrength != nil && (*correctedStrength < 0 || *correctedStrength > 100) {
		return fmt.Errorf("%w: strength %d out of range [0,100]", entities.ErrValidation, *correctedStrength)
	}

	switch action {
	case entities.ActionModify:
		if correctedType == nil && correctedStrength == nil {
			return fmt.Errorf("%w: modify requires a corrected type or strength", entities.ErrValidation)
		}
	default:
		if correctedType != nil || correctedStrength != nil {
			return fmt.Errorf("%w: corrections are only valid with modify", entities.ErrValidation)
		}
	}
	return nil
}

// relationshipFor builds the relationship to materialize alongside the status
// transition, or nil for reject and dismiss. Modify corrections override the
// suggested values where present.
func relationshipFor(sugg *entities.Suggestion, action entities.FeedbackAction, correctedType *entities.RelationType, correctedStrength *int) *entities.Relationship {
	if action != entities.ActionAccept && action != entities.ActionModify {
		return nil
	}

	relType := sugg.SuggestedType
	strength := sugg.Strength
	if action == entities.ActionModify {
		if correctedType != nil {
			relType = *correctedType
		}
		if correctedStrength != nil {
			strength = *correctedStrength
		}
	}

	return &entities.Relationship{
		ID:             uuid.New().String(),
		SagaID:         sugg.SagaID,
		SourceEntityID: sugg.SourceEntityID,
		TargetEntityID: sugg.TargetEntityID,
		Type:           relType,
		Strength:       strength,
		CreatedAt:      time.Now(),
	}
}
