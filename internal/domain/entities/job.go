package entities

import "time"

// JobStatus tracks a batch generation job through its lifecycle.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Active reports whether the job still holds its saga's generation slot.
func (s JobStatus) Active() bool {
	return s == JobQueued || s == JobRunning
}

// BatchJob is the durable record of one suggestion-generation run. It survives
// restarts and is observed by polling; the orchestrator updates it between
// batches.
type BatchJob struct {
	ID                 string     `json:"id"`
	SagaID             string     `json:"saga_id"`
	Status             JobStatus  `json:"status"`
	PairsTotal         int        `json:"pairs_total"`
	PairsProcessed     int        `json:"pairs_processed"`
	SuggestionsCreated int        `json:"suggestions_created"`
	FailureReason      string     `json:"failure_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
}
