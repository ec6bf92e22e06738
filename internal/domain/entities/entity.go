package entities

import (
	"strings"
	"time"
)

// EntityType categorizes saga entities.
type EntityType string

const (
	EntityCharacter EntityType = "character"
	EntityLocation  EntityType = "location"
	EntityFaction   EntityType = "faction"
	EntityItem      EntityType = "item"
	EntityEvent     EntityType = "event"
)

// Entity represents a named subject (character, location, etc.) within one
// saga. Entities are the nodes the suggestion engine scores in pairs; the
// engine only ever reaches them through the EntityStore port.
type Entity struct {
	ID             string            `json:"id"`
	SagaID         string            `json:"saga_id"`
	Name           string            `json:"name"`            // Original name (e.g., "Obi-Wan")
	NormalizedName string            `json:"normalized_name"` // Lowercase for matching (e.g., "obi-wan")
	Type           EntityType        `json:"type"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	Importance     float64           `json:"importance"` // [0,1], editorial weight
	TimelineAnchor *float64          `json:"timeline_anchor,omitempty"`
	Description    string            `json:"description,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// NormalizeName converts a name to lowercase for case-insensitive matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Attribute keys with engine-level meaning. Everything else is opaque.
const (
	AttrBirthYear  = "birth_year"
	AttrFamilyName = "family_name"
	AttrOpposes    = "opposes" // faction entities: normalized name of an opposed faction
)
