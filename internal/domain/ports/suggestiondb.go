package ports

import (
	"context"
	"time"

	"github.com/ersonp/saga-core/internal/domain/entities"
)

// SuggestionFilter narrows suggestion list queries. Zero values mean "any".
type SuggestionFilter struct {
	Status        entities.SuggestionStatus
	Type          entities.RelationType
	MinConfidence float64
}

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

// SuggestionDB persists the four engine collections: suggestions, feedback,
// weight vectors, and batch jobs. It is the single synchronization point for
// everything the engine shares across concurrent jobs.
type SuggestionDB interface {
	// EnsureSchema creates the database schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// Suggestion operations

	// UpsertSuggestion inserts a suggestion, or is a no-op when one already
	// exists for (saga, source, target, type). Returns whether a row was
	// created; on no-op the existing row is loaded into s.
	UpsertSuggestion(ctx context.Context, s *entities.Suggestion) (bool, error)

	// FindSuggestionByID returns a suggestion or entities.ErrNotFound.
	FindSuggestionByID(ctx context.Context, id string) (*entities.Suggestion, error)

	// ListSuggestions returns suggestions ordered by priority_score descending
	// then id ascending, so paginated results are reproducible under ties.
	ListSuggestions(ctx context.Context, sagaID string, filter SuggestionFilter, page Page) ([]*entities.Suggestion, error)

	// CountSuggestions counts suggestions matching the filter.
	CountSuggestions(ctx context.Context, sagaID string, filter SuggestionFilter) (int, error)

	// ListSuggestedPairs returns the canonical "source|target" keys of every
	// pair holding a non-dismissed suggestion of any type in the saga.
	ListSuggestedPairs(ctx context.Context, sagaID string) (map[string]bool, error)

	// Feedback operations

	// RecordFeedback atomically appends the feedback entry, transitions the
	// suggestion from pending to newStatus, and, when rel is non-nil,
	// materializes the relationship - all in one transaction. A suggestion no
	// longer pending fails with entities.ErrConflict and nothing commits.
	// Returns the created relationship ID, if any.
	RecordFeedback(ctx context.Context, fb *entities.Feedback, newStatus entities.SuggestionStatus, rel *entities.Relationship) (string, error)

	// ListFeedbackBySuggestion returns feedback entries oldest first.
	ListFeedbackBySuggestion(ctx context.Context, suggestionID string) ([]entities.Feedback, error)

	// Weight operations

	// GetWeight returns the weight row, or nil when none exists yet.
	GetWeight(ctx context.Context, sagaID string, ft entities.FeatureType, rt entities.RelationType) (*entities.WeightVector, error)

	// ListWeights returns all weight rows for a saga (or entities.GlobalScope).
	ListWeights(ctx context.Context, sagaID string) ([]entities.WeightVector, error)

	// SaveWeight inserts or updates a weight row with compare-and-swap on its
	// version; a stale version fails with entities.ErrConflict.
	SaveWeight(ctx context.Context, w *entities.WeightVector) error

	// Job operations

	// CreateJob persists a new queued job.
	CreateJob(ctx context.Context, job *entities.BatchJob) error

	// ClaimJob transitions a job from queued to running. Returns false when
	// another worker claimed it first or it is no longer queued.
	ClaimJob(ctx context.Context, jobID string, startedAt time.Time) (bool, error)

	// UpdateJobProgress persists batch progress while the job is running.
	UpdateJobProgress(ctx context.Context, jobID string, pairsTotal, pairsProcessed, suggestionsCreated int) error

	// FinishJob moves a running job to a terminal status. A job already
	// cancelled keeps its cancelled status.
	FinishJob(ctx context.Context, jobID string, status entities.JobStatus, reason string, finishedAt time.Time) error

	// FindJobByID returns a job or entities.ErrNotFound.
	FindJobByID(ctx context.Context, jobID string) (*entities.BatchJob, error)

	// FindLatestJob returns the most recently created job for a saga, or nil.
	FindLatestJob(ctx context.Context, sagaID string) (*entities.BatchJob, error)

	// FindActiveJob returns the queued or running job for a saga, or nil.
	FindActiveJob(ctx context.Context, sagaID string) (*entities.BatchJob, error)

	// CancelJob marks the saga's active job cancelled. Returns false when no
	// active job exists.
	CancelJob(ctx context.Context, sagaID string) (bool, error)

	// CountJobsSince counts jobs created for a saga after the given time.
	CountJobsSince(ctx context.Context, sagaID string, since time.Time) (int, error)
}
