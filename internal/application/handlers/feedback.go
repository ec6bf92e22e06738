package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/services"
)

// FeedbackHandler handles reviewer decisions on suggestions.
type FeedbackHandler struct {
	service *services.FeedbackService
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(service *services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
	}
}

// FeedbackOptions carries the optional modify corrections and note.
type FeedbackOptions struct {
	CorrectedType     string
	CorrectedStrength int
	HasStrength       bool
	Note              string
}

// Handle submits one reviewer decision.
func (h *FeedbackHandler) Handle(ctx context.Context, suggestionID, action string, opts FeedbackOptions) (*services.FeedbackResult, error) {
	fa, ok := entities.ParseFeedbackAction(action)
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q (valid: accept, reject, modify, dismiss)",
			entities.ErrValidation, action)
	}

	var correctedType *entities.RelationType
	if opts.CorrectedType != "" {
		rt := entities.RelationType(opts.CorrectedType)
		correctedType = &rt
	}
	var correctedStrength *int
	if opts.HasStrength {
		correctedStrength = &opts.CorrectedStrength
	}

	return h.service.SubmitFeedback(ctx, suggestionID, fa, correctedType, correctedStrength, opts.Note)
}
