package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/ports"
	"github.com/ersonp/saga-core/internal/domain/services"
)

// SuggestHandler handles suggestion generation and review listing.
type SuggestHandler struct {
	orchestrator *services.Orchestrator
	db           ports.SuggestionDB
	store        ports.EntityStore
}

// NewSuggestHandler creates a new SuggestHandler.
func NewSuggestHandler(orchestrator *services.Orchestrator, db ports.SuggestionDB, store ports.EntityStore) *SuggestHandler {
	return &SuggestHandler{
		orchestrator: orchestrator,
		db:           db,
		store:        store,
	}
}

// HandleGenerate enqueues a generation job and runs it to completion.
func (h *SuggestHandler) HandleGenerate(ctx context.Context, sagaID string) (*entities.BatchJob, error) {
	job, err := h.orchestrator.StartBatch(ctx, sagaID)
	if err != nil {
		return nil, err
	}

	if err := h.orchestrator.Run(ctx, job.ID); err != nil {
		return nil, err
	}

	return h.db.FindJobByID(ctx, job.ID)
}

// ListOptions configures suggestion listing.
type ListOptions struct {
	Status        string
	Type          string
	MinConfidence float64
	Limit         int
	Offset        int
}

// ListResult is one page of suggestions with the total matching count.
type ListResult struct {
	Suggestions []*entities.Suggestion `json:"suggestions"`
	Total       int                    `json:"total"`
}

// HandleList returns suggestions ordered by priority, highest first.
func (h *SuggestHandler) HandleList(ctx context.Context, sagaID string, opts ListOptions) (*ListResult, error) {
	filter := ports.SuggestionFilter{
		MinConfidence: opts.MinConfidence,
	}
	if opts.Status != "" {
		filter.Status = entities.SuggestionStatus(opts.Status)
	}
	if opts.Type != "" {
		rt, ok := entities.ParseRelationType(opts.Type)
		if !ok {
			return nil, fmt.Errorf("%w: unknown relationship type %q", entities.ErrValidation, opts.Type)
		}
		filter.Type = rt
	}

	suggestions, err := h.db.ListSuggestions(ctx, sagaID, filter, ports.Page{Limit: opts.Limit, Offset: opts.Offset})
	if err != nil {
		return nil, err
	}
	total, err := h.db.CountSuggestions(ctx, sagaID, filter)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Suggestions: suggestions,
		Total:       total,
	}, nil
}

// SuggestionDetail is a suggestion joined with its entities and feedback.
type SuggestionDetail struct {
	Suggestion *entities.Suggestion `json:"suggestion"`
	Source     *entities.Entity     `json:"source,omitempty"`
	Target     *entities.Entity     `json:"target,omitempty"`
	Feedback   []entities.Feedback  `json:"feedback,omitempty"`
}

// HandleShow returns one suggestion with entity names and its feedback log.
func (h *SuggestHandler) HandleShow(ctx context.Context, id string) (*SuggestionDetail, error) {
	sugg, err := h.db.FindSuggestionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &SuggestionDetail{Suggestion: sugg}

	// Entity lookups are best effort; a deleted entity still leaves the
	// suggestion readable.
	if src, err := h.store.GetEntity(ctx, sugg.SourceEntityID); err == nil {
		detail.Source = src
	}
	if tgt, err := h.store.GetEntity(ctx, sugg.TargetEntityID); err == nil {
		detail.Target = tgt
	}

	fb, err := h.db.ListFeedbackBySuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Feedback = fb

	return detail, nil
}

// HandleWeights returns the saga's weight rows followed by the global pool.
func (h *SuggestHandler) HandleWeights(ctx context.Context, sagaID string) (saga, global []entities.WeightVector, err error) {
	saga, err = h.db.ListWeights(ctx, sagaID)
	if err != nil {
		return nil, nil, err
	}
	global, err = h.db.ListWeights(ctx, entities.GlobalScope)
	if err != nil {
		return nil, nil, err
	}
	return saga, global, nil
}
