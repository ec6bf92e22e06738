package mocks

import (
	"context"
	"fmt"
	"sort"

	"github.com/ersonp/saga-core/internal/domain/entities"
)

// EntityStore is an in-memory mock implementation of ports.EntityStore.
type EntityStore struct {
	Entities      map[string]*entities.Entity
	Relationships []entities.Relationship
	Err           error
}

// NewEntityStore creates a new mock EntityStore.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		Entities: make(map[string]*entities.Entity),
	}
}

// SaveEntity saves or updates an entity.
func (m *EntityStore) SaveEntity(_ context.Context, entity *entities.Entity) error {
	if m.Err != nil {
		return m.Err
	}
	m.Entities[entity.ID] = entity
	return nil
}

// GetEntity returns an entity by ID, or entities.ErrNotFound.
func (m *EntityStore) GetEntity(_ context.Context, entityID string) (*entities.Entity, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	e, ok := m.Entities[entityID]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", entityID, entities.ErrNotFound)
	}
	return e, nil
}

// FindEntityByName finds an entity by normalized name; nil when absent.
func (m *EntityStore) FindEntityByName(_ context.Context, sagaID, name string) (*entities.Entity, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	normalized := entities.NormalizeName(name)
	for _, e := range m.Entities {
		if e.SagaID == sagaID && e.NormalizedName == normalized {
			return e, nil
		}
	}
	return nil, nil
}

// ListEntitiesInScope returns every entity in a saga, ordered by ID.
func (m *EntityStore) ListEntitiesInScope(_ context.Context, sagaID string) ([]*entities.Entity, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var result []*entities.Entity
	for _, e := range m.Entities {
		if e.SagaID == sagaID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// GetRelationships returns all relationships an entity participates in.
func (m *EntityStore) GetRelationships(_ context.Context, entityID string) ([]entities.Relationship, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.Relationship
	for _, rel := range m.Relationships {
		if rel.SourceEntityID == entityID || rel.TargetEntityID == entityID {
			result = append(result, rel)
		}
	}
	return result, nil
}

// ListRelationshipsInScope returns every relationship in a saga.
func (m *EntityStore) ListRelationshipsInScope(_ context.Context, sagaID string) ([]entities.Relationship, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.Relationship
	for _, rel := range m.Relationships {
		if rel.SagaID == sagaID {
			result = append(result, rel)
		}
	}
	return result, nil
}

// CreateRelationship materializes a relationship.
func (m *EntityStore) CreateRelationship(_ context.Context, rel *entities.Relationship) error {
	if m.Err != nil {
		return m.Err
	}
	m.Relationships = append(m.Relationships, *rel)
	return nil
}
