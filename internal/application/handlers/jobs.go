package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/services"
)

// JobsHandler handles batch job observation and cancellation.
type JobsHandler struct {
	orchestrator *services.Orchestrator
}

// NewJobsHandler creates a new JobsHandler.
func NewJobsHandler(orchestrator *services.Orchestrator) *JobsHandler {
	return &JobsHandler{
		orchestrator: orchestrator,
	}
}

// HandleStatus returns the saga's most recent job.
func (h *JobsHandler) HandleStatus(ctx context.Context, sagaID string) (*entities.BatchJob, error) {
	job, err := h.orchestrator.Progress(ctx, sagaID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: no jobs for saga %s", entities.ErrNotFound, sagaID)
	}
	return job, nil
}

// HandleCancel cancels the saga's active job.
func (h *JobsHandler) HandleCancel(ctx context.Context, sagaID string) error {
	return h.orchestrator.Cancel(ctx, sagaID)
}
