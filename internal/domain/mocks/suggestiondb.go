package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/ports"
)

// SuggestionDB is an in-memory mock implementation of ports.SuggestionDB. It
// reproduces the store's concurrency semantics (upsert idempotency, pending
// transition guard, weight version CAS) so service tests exercise the same
// contract the SQLite repository provides.
type SuggestionDB struct {
	mu sync.Mutex

	Suggestions map[string]*entities.Suggestion
	Feedback    []entities.Feedback
	Weights     map[string]*entities.WeightVector
	Jobs        map[string]*entities.BatchJob
	Err         error
}

// NewSuggestionDB creates a new mock SuggestionDB.
func NewSuggestionDB() *SuggestionDB {
	return &SuggestionDB{
		Suggestions: make(map[string]*entities.Suggestion),
		Weights:     make(map[string]*entities.WeightVector),
		Jobs:        make(map[string]*entities.BatchJob),
	}
}

func weightKey(sagaID string, ft entities.FeatureType, rt entities.RelationType) string {
	return sagaID + "|" + string(ft) + "|" + string(rt)
}

// EnsureSchema is a no-op.
func (m *SuggestionDB) EnsureSchema(_ context.Context) error {
	return m.Err
}

// Close is a no-op.
func (m *SuggestionDB) Close() error {
	return nil
}

// UpsertSuggestion inserts, or loads the existing row into s and reports false.
func (m *SuggestionDB) UpsertSuggestion(_ context.Context, s *entities.Suggestion) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	for _, existing := range m.Suggestions {
		if existing.SagaID == s.SagaID &&
			existing.SourceEntityID == s.SourceEntityID &&
			existing.TargetEntityID == s.TargetEntityID &&
			existing.SuggestedType == s.SuggestedType {
			*s = *existing
			return false, nil
		}
	}
	copied := *s
	m.Suggestions[s.ID] = &copied
	return true, nil
}

// FindSuggestionByID returns a suggestion or entities.ErrNotFound.
func (m *SuggestionDB) FindSuggestionByID(_ context.Context, id string) (*entities.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.Suggestions[id]
	if !ok {
		return nil, fmt.Errorf("suggestion %s: %w", id, entities.ErrNotFound)
	}
	copied := *s
	return &copied, nil
}

// ListSuggestions returns matching suggestions ordered by priority then ID.
func (m *SuggestionDB) ListSuggestions(_ context.Context, sagaID string, filter ports.SuggestionFilter, page ports.Page) ([]*entities.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var result []*entities.Suggestion
	for _, s := range m.Suggestions {
		if s.SagaID == sagaID && matchesFilter(s, filter) {
			copied := *s
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PriorityScore != result[j].PriorityScore {
			return result[i].PriorityScore > result[j].PriorityScore
		}
		return result[i].ID < result[j].ID
	})

	if page.Offset > 0 {
		if page.Offset >= len(result) {
			return nil, nil
		}
		result = result[page.Offset:]
	}
	if page.Limit > 0 && page.Limit < len(result) {
		result = result[:page.Limit]
	}
	return result, nil
}

// CountSuggestions counts suggestions matching the filter.
func (m *SuggestionDB) CountSuggestions(_ context.Context, sagaID string, filter ports.SuggestionFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	count := 0
	for _, s := range m.Suggestions {
		if s.SagaID == sagaID && matchesFilter(s, filter) {
			count++
		}
	}
	return count, nil
}

func matchesFilter(s *entities.Suggestion, filter ports.SuggestionFilter) bool {
	if filter.Status != "" && s.Status != filter.Status {
		return false
	}
	if filter.Type != "" && s.SuggestedType != filter.Type {
		return false
	}
	if filter.MinConfidence > 0 && s.Confidence < filter.MinConfidence {
		return false
	}
	return true
}

// ListSuggestedPairs returns canonical pair keys holding non-dismissed
// suggestions.
func (m *SuggestionDB) ListSuggestedPairs(_ context.Context, sagaID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	pairs := make(map[string]bool)
	for _, s := range m.Suggestions {
		if s.SagaID == sagaID && s.Status != entities.StatusDismissed {
			pairs[s.SourceEntityID+"|"+s.TargetEntityID] = true
		}
	}
	return pairs, nil
}

// RecordFeedback transitions the suggestion, appends the entry, and records
// the relationship ID. A non-pending suggestion fails with entities.ErrConflict.
func (m *SuggestionDB) RecordFeedback(_ context.Context, fb *entities.Feedback, newStatus entities.SuggestionStatus, rel *entities.Relationship) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}

	s, ok := m.Suggestions[fb.SuggestionID]
	if !ok {
		return "", fmt.Errorf("suggestion %s: %w", fb.SuggestionID, entities.ErrNotFound)
	}
	if s.Status != entities.StatusPending {
		return "", fmt.Errorf("suggestion %s already actioned (%s): %w", s.ID, s.Status, entities.ErrConflict)
	}

	s.Status = newStatus
	s.UpdatedAt = time.Now()
	m.Feedback = append(m.Feedback, *fb)

	if rel == nil {
		return "", nil
	}
	s.CreatedRelationshipID = &rel.ID
	return rel.ID, nil
}

// ListFeedbackBySuggestion returns feedback entries oldest first.
func (m *SuggestionDB) ListFeedbackBySuggestion(_ context.Context, suggestionID string) ([]entities.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.Feedback
	for _, fb := range m.Feedback {
		if fb.SuggestionID == suggestionID {
			result = append(result, fb)
		}
	}
	return result, nil
}

// GetWeight returns the weight row, or nil when none exists yet.
func (m *SuggestionDB) GetWeight(_ context.Context, sagaID string, ft entities.FeatureType, rt entities.RelationType) (*entities.WeightVector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	w, ok := m.Weights[weightKey(sagaID, ft, rt)]
	if !ok {
		return nil, nil
	}
	copied := *w
	return &copied, nil
}

// ListWeights returns all weight rows for a scope.
func (m *SuggestionDB) ListWeights(_ context.Context, sagaID string) ([]entities.WeightVector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.WeightVector
	for _, w := range m.Weights {
		if w.SagaID == sagaID {
			result = append(result, *w)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].FeatureType < result[j].FeatureType
	})
	return result, nil
}

// SaveWeight inserts or updates with compare-and-swap on the version.
func (m *SuggestionDB) SaveWeight(_ context.Context, w *entities.WeightVector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	key := weightKey(w.SagaID, w.FeatureType, w.RelationType)
	existing, ok := m.Weights[key]
	if w.Version == 0 {
		if ok {
			return fmt.Errorf("weight %s: %w", key, entities.ErrConflict)
		}
	} else {
		if !ok || existing.Version != w.Version {
			return fmt.Errorf("weight %s: %w", key, entities.ErrConflict)
		}
	}

	w.Version++
	copied := *w
	m.Weights[key] = &copied
	return nil
}

// CreateJob persists a new queued job.
func (m *SuggestionDB) CreateJob(_ context.Context, job *entities.BatchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	copied := *job
	m.Jobs[job.ID] = &copied
	return nil
}

// ClaimJob transitions queued to running.
func (m *SuggestionDB) ClaimJob(_ context.Context, jobID string, startedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	job, ok := m.Jobs[jobID]
	if !ok || job.Status != entities.JobQueued {
		return false, nil
	}
	job.Status = entities.JobRunning
	job.StartedAt = &startedAt
	return true, nil
}

// UpdateJobProgress persists batch progress while the job is running.
func (m *SuggestionDB) UpdateJobProgress(_ context.Context, jobID string, pairsTotal, pairsProcessed, suggestionsCreated int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	job, ok := m.Jobs[jobID]
	if !ok || job.Status != entities.JobRunning {
		return nil
	}
	job.PairsTotal = pairsTotal
	job.PairsProcessed = pairsProcessed
	job.SuggestionsCreated = suggestionsCreated
	return nil
}

// FinishJob moves a running job to a terminal status.
func (m *SuggestionDB) FinishJob(_ context.Context, jobID string, status entities.JobStatus, reason string, finishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	job, ok := m.Jobs[jobID]
	if !ok || job.Status != entities.JobRunning {
		return nil
	}
	job.Status = status
	job.FailureReason = reason
	job.FinishedAt = &finishedAt
	return nil
}

// FindJobByID returns a job or entities.ErrNotFound.
func (m *SuggestionDB) FindJobByID(_ context.Context, jobID string) (*entities.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	job, ok := m.Jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, entities.ErrNotFound)
	}
	copied := *job
	return &copied, nil
}

// FindLatestJob returns the most recently created job for a saga, or nil.
func (m *SuggestionDB) FindLatestJob(_ context.Context, sagaID string) (*entities.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var latest *entities.BatchJob
	for _, job := range m.Jobs {
		if job.SagaID != sagaID {
			continue
		}
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

// FindActiveJob returns the queued or running job for a saga, or nil.
func (m *SuggestionDB) FindActiveJob(_ context.Context, sagaID string) (*entities.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, job := range m.Jobs {
		if job.SagaID == sagaID && job.Status.Active() {
			copied := *job
			return &copied, nil
		}
	}
	return nil, nil
}

// CancelJob marks the saga's active job cancelled.
func (m *SuggestionDB) CancelJob(_ context.Context, sagaID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	now := time.Now()
	cancelled := false
	for _, job := range m.Jobs {
		if job.SagaID == sagaID && job.Status.Active() {
			job.Status = entities.JobCancelled
			job.FinishedAt = &now
			cancelled = true
		}
	}
	return cancelled, nil
}

// CountJobsSince counts jobs created for a saga after the given time.
func (m *SuggestionDB) CountJobsSince(_ context.Context, sagaID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	count := 0
	for _, job := range m.Jobs {
		if job.SagaID == sagaID && job.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}
