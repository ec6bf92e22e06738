package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/ports"
	"github.com/ersonp/saga-core/internal/infrastructure/parsers"
)

// EntityHandler handles entity and relationship operations.
type EntityHandler struct {
	store ports.EntityStore
}

// NewEntityHandler creates a new EntityHandler.
func NewEntityHandler(store ports.EntityStore) *EntityHandler {
	return &EntityHandler{
		store: store,
	}
}

// AddOptions configures entity creation.
type AddOptions struct {
	Type           string
	Description    string
	Importance     float64
	TimelineAnchor *float64
	Attributes     map[string]string
}

// HandleAdd creates or updates an entity by name within a saga.
func (h *EntityHandler) HandleAdd(ctx context.Context, sagaID, name string, opts AddOptions) (*entities.Entity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: entity name is required", entities.ErrValidation)
	}
	if opts.Importance < 0 || opts.Importance > 1 {
		return nil, fmt.Errorf("%w: importance %v out of range [0,1]", entities.ErrValidation, opts.Importance)
	}

	entityType, err := parseEntityType(opts.Type)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entity := &entities.Entity{
		ID:             uuid.New().String(),
		SagaID:         sagaID,
		Name:           name,
		NormalizedName: entities.NormalizeName(name),
		Type:           entityType,
		Attributes:     opts.Attributes,
		Importance:     opts.Importance,
		TimelineAnchor: opts.TimelineAnchor,
		Description:    opts.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// Re-adding an existing name updates it in place.
	if existing, err := h.store.FindEntityByName(ctx, sagaID, name); err != nil {
		return nil, err
	} else if existing != nil {
		entity.ID = existing.ID
		entity.CreatedAt = existing.CreatedAt
	}

	if err := h.store.SaveEntity(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// HandleList returns every entity in a saga.
func (h *EntityHandler) HandleList(ctx context.Context, sagaID string) ([]*entities.Entity, error) {
	return h.store.ListEntitiesInScope(ctx, sagaID)
}

// EntityDetail is an entity with its relationships.
type EntityDetail struct {
	Entity        *entities.Entity        `json:"entity"`
	Relationships []entities.Relationship `json:"relationships"`
}

// HandleShow returns one entity with its relationships, resolving the
// argument as an ID first and a name second.
func (h *EntityHandler) HandleShow(ctx context.Context, sagaID, idOrName string) (*EntityDetail, error) {
	entity, err := h.resolve(ctx, sagaID, idOrName)
	if err != nil {
		return nil, err
	}

	rels, err := h.store.GetRelationships(ctx, entity.ID)
	if err != nil {
		return nil, err
	}

	return &EntityDetail{
		Entity:        entity,
		Relationships: rels,
	}, nil
}

// HandleRelate creates a relationship between two entities, each resolved by
// ID or name.
func (h *EntityHandler) HandleRelate(ctx context.Context, sagaID, source, relType, target string, strength int) (*entities.Relationship, error) {
	rt, ok := entities.ParseRelationType(relType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown relationship type %q (valid: %s)",
			entities.ErrValidation, relType, validTypeList())
	}
	if strength < 0 || strength > 100 {
		return nil, fmt.Errorf("%w: strength %d out of range [0,100]", entities.ErrValidation, strength)
	}

	src, err := h.resolve(ctx, sagaID, source)
	if err != nil {
		return nil, err
	}
	tgt, err := h.resolve(ctx, sagaID, target)
	if err != nil {
		return nil, err
	}

	rel := &entities.Relationship{
		ID:             uuid.New().String(),
		SagaID:         sagaID,
		SourceEntityID: src.ID,
		TargetEntityID: tgt.ID,
		Type:           rt,
		Strength:       strength,
		CreatedAt:      time.Now(),
	}
	if err := h.store.CreateRelationship(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// ImportResult summarizes a bulk entity import.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// HandleImport bulk-loads entities from a JSON or CSV file. Existing names are
// updated in place; the whole file is validated and applied row by row, and
// the first bad row aborts the import.
func (h *EntityHandler) HandleImport(ctx context.Context, sagaID, filename string, r io.Reader) (*ImportResult, error) {
	parser := parsers.ForFile(filename)
	if parser == nil {
		return nil, fmt.Errorf("%w: unsupported import format for %q (supported: .json, .csv)",
			entities.ErrValidation, filename)
	}

	raws, err := parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrValidation, err)
	}

	result := &ImportResult{}
	for _, raw := range raws {
		if strings.TrimSpace(raw.Name) == "" {
			return nil, fmt.Errorf("%w: line %d: entity name is required", entities.ErrValidation, raw.LineNum)
		}

		existing, err := h.store.FindEntityByName(ctx, sagaID, raw.Name)
		if err != nil {
			return nil, err
		}

		opts := AddOptions{
			Type:           raw.Type,
			Description:    raw.Description,
			TimelineAnchor: raw.TimelineAnchor,
			Attributes:     raw.Attributes,
		}
		if raw.Importance != nil {
			opts.Importance = *raw.Importance
		}

		if _, err := h.HandleAdd(ctx, sagaID, raw.Name, opts); err != nil {
			return nil, fmt.Errorf("line %d: %w", raw.LineNum, err)
		}

		if existing == nil {
			result.Created++
		} else {
			result.Updated++
		}
	}

	return result, nil
}

// resolve looks an entity up by ID, then by name.
func (h *EntityHandler) resolve(ctx context.Context, sagaID, idOrName string) (*entities.Entity, error) {
	if _, err := uuid.Parse(idOrName); err == nil {
		if entity, err := h.store.GetEntity(ctx, idOrName); err == nil {
			return entity, nil
		}
	}

	entity, err := h.store.FindEntityByName(ctx, sagaID, idOrName)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, fmt.Errorf("entity %q: %w", idOrName, entities.ErrNotFound)
	}
	return entity, nil
}

func parseEntityType(s string) (entities.EntityType, error) {
	if s == "" {
		return entities.EntityCharacter, nil
	}
	switch et := entities.EntityType(s); et {
	case entities.EntityCharacter, entities.EntityLocation, entities.EntityFaction,
		entities.EntityItem, entities.EntityEvent:
		return et, nil
	}
	return "", fmt.Errorf("%w: unknown entity type %q (valid: character, location, faction, item, event)",
		entities.ErrValidation, s)
}

func validTypeList() string {
	parts := make([]string, len(entities.ValidRelationTypes))
	for i, rt := range entities.ValidRelationTypes {
		parts[i] = string(rt)
	}
	return strings.Join(parts, ", ")
}
