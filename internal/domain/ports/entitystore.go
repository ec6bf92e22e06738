package ports

import (
	"context"

	"github.com/ersonp/saga-core/internal/domain/entities"
)

// EntityStore is the engine's read view of saga content plus the single write
// path for materializing accepted relationships. Attributes, timeline anchors,
// and description text ride on the Entity record.
type EntityStore interface {
	// SaveEntity saves or updates an entity (the seeding path).
	SaveEntity(ctx context.Context, entity *entities.Entity) error

	// GetEntity returns an entity by ID, or entities.ErrNotFound.
	GetEntity(ctx context.Context, entityID string) (*entities.Entity, error)

	// FindEntityByName finds an entity by normalized name; nil when absent.
	FindEntityByName(ctx context.Context, sagaID, name string) (*entities.Entity, error)

	// ListEntitiesInScope returns every entity in a saga, ordered by ID.
	ListEntitiesInScope(ctx context.Context, sagaID string) ([]*entities.Entity, error)

	// GetRelationships returns all relationships an entity participates in,
	// as source or target.
	GetRelationships(ctx context.Context, entityID string) ([]entities.Relationship, error)

	// ListRelationshipsInScope returns every relationship in a saga.
	ListRelationshipsInScope(ctx context.Context, sagaID string) ([]entities.Relationship, error)

	// CreateRelationship materializes a relationship. Invoked only on
	// accept/modify feedback and on auto-accepted suggestions.
	CreateRelationship(ctx context.Context, rel *entities.Relationship) error
}
