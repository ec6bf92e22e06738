package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ersonp/saga-core/internal/domain/entities"
)

// EntityStore methods. The engine consumes these through the
// ports.EntityStore interface; the CLI uses the write side to seed sagas.

// SaveEntity saves or updates an entity.
func (r *Repository) SaveEntity(ctx context.Context, entity *entities.Entity) error {
	var attributes sql.NullString
	if len(entity.Attributes) > 0 {
		data, err := json.Marshal(entity.Attributes)
		if err != nil {
			return fmt.Errorf("marshaling attributes: %w", err)
		}
		attributes = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO entities (id, saga_id, name, normalized_name, entity_type, attributes, importance, timeline_anchor, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(saga_id, normalized_name) DO UPDATE SET
			name = excluded.name,
			entity_type = excluded.entity_type,
			attributes = excluded.attributes,
			importance = excluded.importance,
			timeline_anchor = excluded.timeline_anchor,
			description = excluded.description,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		entity.ID,
		entity.SagaID,
		entity.Name,
		entity.NormalizedName,
		string(entity.Type),
		attributes,
		entity.Importance,
		entity.TimelineAnchor,
		entity.Description,
		entity.CreatedAt,
		entity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving entity: %w", err)
	}
	return nil
}

const entityColumns = `id, saga_id, name, normalized_name, entity_type, attributes, importance, timeline_anchor, description, created_at, updated_at`

// GetEntity returns an entity by ID, or entities.ErrNotFound.
func (r *Repository) GetEntity(ctx context.Context, entityID string) (*entities.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, entityID)

	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", entityID, entities.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// FindEntityByName finds an entity by its normalized name (case-insensitive).
// Returns nil if no entity matches.
func (r *Repository) FindEntityByName(ctx context.Context, sagaID, name string) (*entities.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE saga_id = ? AND normalized_name = ?`
	row := r.db.QueryRowContext(ctx, query, sagaID, entities.NormalizeName(name))

	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// ListEntitiesInScope returns every entity in a saga, ordered by ID so pair
// enumeration is deterministic.
func (r *Repository) ListEntitiesInScope(ctx context.Context, sagaID string) ([]*entities.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE saga_id = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, sagaID)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	result := make([]*entities.Entity, 0, 16)
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entity)
	}
	return result, rows.Err()
}

// GetRelationships returns all relationships an entity participates in.
func (r *Repository) GetRelationships(ctx context.Context, entityID string) ([]entities.Relationship, error) {
	query := `
		SELECT id, saga_id, source_entity_id, target_entity_id, type, strength, created_at
		FROM relationships
		WHERE source_entity_id = ? OR target_entity_id = ?
		ORDER BY created_at DESC
	`
	return r.queryRelationships(ctx, query, entityID, entityID)
}

// ListRelationshipsInScope returns every relationship in a saga.
func (r *Repository) ListRelationshipsInScope(ctx context.Context, sagaID string) ([]entities.Relationship, error) {
	query := `
		SELECT id, saga_id, source_entity_id, target_entity_id, type, strength, created_at
		FROM relationships
		WHERE saga_id = ?
		ORDER BY created_at DESC
	`
	return r.queryRelationships(ctx, query, sagaID)
}

// CreateRelationship materializes a relationship.
func (r *Repository) CreateRelationship(ctx context.Context, rel *entities.Relationship) error {
	if rel.SourceEntityID == rel.TargetEntityID {
		return fmt.Errorf("%w: relationship source equals target (%s)", entities.ErrValidation, rel.SourceEntityID)
	}
	if rel.ID == "" {
		rel.ID = generateUUID()
	}

	query := `
		INSERT INTO relationships (id, saga_id, source_entity_id, target_entity_id, type, strength, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		rel.ID,
		rel.SagaID,
		rel.SourceEntityID,
		rel.TargetEntityID,
		string(rel.Type),
		rel.Strength,
		rel.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating relationship: %w", err)
	}
	return nil
}

// queryRelationships is a helper to execute relationship queries.
func (r *Repository) queryRelationships(ctx context.Context, query string, args ...any) ([]entities.Relationship, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}
	defer rows.Close()

	relationships := make([]entities.Relationship, 0, 16)
	for rows.Next() {
		var rel entities.Relationship
		var relType string
		if err := rows.Scan(
			&rel.ID,
			&rel.SagaID,
			&rel.SourceEntityID,
			&rel.TargetEntityID,
			&relType,
			&rel.Strength,
			&rel.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		rel.Type = entities.RelationType(relType)
		relationships = append(relationships, rel)
	}
	return relationships, rows.Err()
}

// scanEntity scans one entity row.
func scanEntity(row scanner) (*entities.Entity, error) {
	var entity entities.Entity
	var entityType string
	var attributes sql.NullString
	var anchor sql.NullFloat64
	var description sql.NullString

	err := row.Scan(
		&entity.ID,
		&entity.SagaID,
		&entity.Name,
		&entity.NormalizedName,
		&entityType,
		&attributes,
		&entity.Importance,
		&anchor,
		&description,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning entity: %w", err)
	}

	entity.Type = entities.EntityType(entityType)
	entity.Description = description.String
	if anchor.Valid {
		entity.TimelineAnchor = &anchor.Float64
	}
	if attributes.Valid && attributes.String != "" {
		if err := json.Unmarshal([]byte(attributes.String), &entity.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshaling attributes: %w", err)
		}
	}

	return &entity, nil
}
