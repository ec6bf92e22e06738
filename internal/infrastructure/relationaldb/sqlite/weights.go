package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ersonp/saga-core/internal/domain/entities"
)

// Weight operations. Rows are versioned; SaveWeight is compare-and-swap so
// concurrent learning updates for the same scope cannot silently lose writes.

const weightColumns = `saga_id, feature_type, relation_type, weight, accuracy_score, accepted_count, rejected_count, sample_count, version, updated_at`

// GetWeight returns the weight row, or nil when none exists yet.
func (r *Repository) GetWeight(ctx context.Context, sagaID string, ft entities.FeatureType, rt entities.RelationType) (*entities.WeightVector, error) {
	query := `SELECT ` + weightColumns + ` FROM weights WHERE saga_id = ? AND feature_type = ? AND relation_type = ?`
	row := r.db.QueryRowContext(ctx, query, sagaID, string(ft), string(rt))

	w, err := scanWeight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ListWeights returns all weight rows for a saga (or entities.GlobalScope),
// ordered for deterministic output.
func (r *Repository) ListWeights(ctx context.Context, sagaID string) ([]entities.WeightVector, error) {
	query := `SELECT ` + weightColumns + ` FROM weights WHERE saga_id = ? ORDER BY feature_type ASC, relation_type ASC`
	rows, err := r.db.QueryContext(ctx, query, sagaID)
	if err != nil {
		return nil, fmt.Errorf("querying weights: %w", err)
	}
	defer rows.Close()

	result := make([]entities.WeightVector, 0, len(entities.AllFeatureTypes))
	for rows.Next() {
		w, err := scanWeight(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	return result, rows.Err()
}

// SaveWeight inserts a new weight row (Version 0) or updates an existing one
// with compare-and-swap on its version. A stale version fails with
// entities.ErrConflict; callers re-read and retry.
func (r *Repository) SaveWeight(ctx context.Context, w *entities.WeightVector) error {
	if w.Weight < 0 || w.Weight > 1 {
		return fmt.Errorf("%w: weight %.4f out of range", entities.ErrValidation, w.Weight)
	}

	now := timeNow()

	if w.Version == 0 {
		query := `
			INSERT INTO weights (saga_id, feature_type, relation_type, weight, accuracy_score, accepted_count, rejected_count, sample_count, version, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
			ON CONFLICT(saga_id, feature_type, relation_type) DO NOTHING
		`
		result, err := r.db.ExecContext(ctx, query,
			w.SagaID, string(w.FeatureType), string(w.RelationType),
			w.Weight, w.AccuracyScore, w.AcceptedCount, w.RejectedCount, w.SampleCount, now,
		)
		if err != nil {
			return fmt.Errorf("inserting weight: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			// Another writer created the row first.
			return fmt.Errorf("weight (%s, %s, %s) already exists: %w", w.SagaID, w.FeatureType, w.RelationType, entities.ErrConflict)
		}
		w.Version = 1
		w.UpdatedAt = now
		return nil
	}

	query := `
		UPDATE weights
		SET weight = ?, accuracy_score = ?, accepted_count = ?, rejected_count = ?, sample_count = ?, version = version + 1, updated_at = ?
		WHERE saga_id = ? AND feature_type = ? AND relation_type = ? AND version = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		w.Weight, w.AccuracyScore, w.AcceptedCount, w.RejectedCount, w.SampleCount, now,
		w.SagaID, string(w.FeatureType), string(w.RelationType), w.Version,
	)
	if err != nil {
		return fmt.Errorf("updating weight: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("weight (%s, %s, %s) version %d is stale: %w", w.SagaID, w.FeatureType, w.RelationType, w.Version, entities.ErrConflict)
	}

	w.Version++
	w.UpdatedAt = now
	return nil
}

// scanWeight scans one weight row.
func scanWeight(row scanner) (*entities.WeightVector, error) {
	var w entities.WeightVector
	var ft, rt string

	err := row.Scan(
		&w.SagaID,
		&ft,
		&rt,
		&w.Weight,
		&w.AccuracyScore,
		&w.AcceptedCount,
		&w.RejectedCount,
		&w.SampleCount,
		&w.Version,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning weight: %w", err)
	}

	w.FeatureType = entities.FeatureType(ft)
	w.RelationType = entities.RelationType(rt)
	return &w, nil
}
