package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ersonp/saga-core/internal/domain/entities"
)

// Job operations. Jobs are durable rows observed by polling; status
// transitions are guarded so a cancelled job is never resurrected by a
// late-running worker.

const jobColumns = `id, saga_id, status, pairs_total, pairs_processed, suggestions_created, failure_reason, created_at, started_at, finished_at`

// CreateJob persists a new queued job.
func (r *Repository) CreateJob(ctx context.Context, job *entities.BatchJob) error {
	query := `
		INSERT INTO jobs (id, saga_id, status, pairs_total, pairs_processed, suggestions_created, failure_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.SagaID,
		string(job.Status),
		job.PairsTotal,
		job.PairsProcessed,
		job.SuggestionsCreated,
		job.FailureReason,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating job: %w", err)
	}
	return nil
}

// ClaimJob transitions a job from queued to running. Returns false when
// another worker claimed it first or it is no longer queued.
func (r *Repository) ClaimJob(ctx context.Context, jobID string, startedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, started_at = ? WHERE id = ? AND status = ?
	`, string(entities.JobRunning), startedAt, jobID, string(entities.JobQueued))
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// UpdateJobProgress persists batch progress while the job is running.
func (r *Repository) UpdateJobProgress(ctx context.Context, jobID string, pairsTotal, pairsProcessed, suggestionsCreated int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET pairs_total = ?, pairs_processed = ?, suggestions_created = ?
		WHERE id = ? AND status = ?
	`, pairsTotal, pairsProcessed, suggestionsCreated, jobID, string(entities.JobRunning))
	if err != nil {
		return fmt.Errorf("updating job progress: %w", err)
	}
	return nil
}

// FinishJob moves a running job to a terminal status. A job already cancelled
// keeps its cancelled status - the update only matches running rows.
func (r *Repository) FinishJob(ctx context.Context, jobID string, status entities.JobStatus, reason string, finishedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, failure_reason = ?, finished_at = ? WHERE id = ? AND status = ?
	`, string(status), reason, finishedAt, jobID, string(entities.JobRunning))
	if err != nil {
		return fmt.Errorf("finishing job: %w", err)
	}
	return nil
}

// FindJobByID returns a job or entities.ErrNotFound.
func (r *Repository) FindJobByID(ctx context.Context, jobID string) (*entities.BatchJob, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, jobID)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", jobID, entities.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// FindLatestJob returns the most recently created job for a saga, or nil.
func (r *Repository) FindLatestJob(ctx context.Context, sagaID string) (*entities.BatchJob, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE saga_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, sagaID)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// FindActiveJob returns the queued or running job for a saga, or nil.
func (r *Repository) FindActiveJob(ctx context.Context, sagaID string) (*entities.BatchJob, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE saga_id = ? AND status IN (?, ?) ORDER BY created_at ASC LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, sagaID, string(entities.JobQueued), string(entities.JobRunning))

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// CancelJob marks the saga's active job cancelled. Returns false when no
// active job exists. The orchestrator observes the new status between batches.
func (r *Repository) CancelJob(ctx context.Context, sagaID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, finished_at = ? WHERE saga_id = ? AND status IN (?, ?)
	`, string(entities.JobCancelled), timeNow(), sagaID, string(entities.JobQueued), string(entities.JobRunning))
	if err != nil {
		return false, fmt.Errorf("cancelling job: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// CountJobsSince counts jobs created for a saga after the given time. Used
// for the rolling-hour rate limit.
func (r *Repository) CountJobsSince(ctx context.Context, sagaID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE saga_id = ? AND created_at > ?`, sagaID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting jobs: %w", err)
	}
	return count, nil
}

// scanJob scans one job row.
func scanJob(row scanner) (*entities.BatchJob, error) {
	var job entities.BatchJob
	var status string
	var reason sql.NullString
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.SagaID,
		&status,
		&job.PairsTotal,
		&job.PairsProcessed,
		&job.SuggestionsCreated,
		&reason,
		&job.CreatedAt,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning job: %w", err)
	}

	job.Status = entities.JobStatus(status)
	job.FailureReason = reason.String
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}
	return &job, nil
}
