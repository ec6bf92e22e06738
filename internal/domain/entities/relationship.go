package entities

import "time"

// RelationType defines the kind of relationship between entities.
type RelationType string

const (
	RelationMentor     RelationType = "mentor"
	RelationAlly       RelationType = "ally"
	RelationEnemy      RelationType = "enemy"
	RelationFamily     RelationType = "family"
	RelationRival      RelationType = "rival"
	RelationMemberOf   RelationType = "member_of"
	RelationLocatedIn  RelationType = "located_in"
	RelationOwns       RelationType = "owns"
	RelationAssociated RelationType = "associated"
)

// ValidRelationTypes lists every relationship type the engine understands.
var ValidRelationTypes = []RelationType{
	RelationMentor, RelationAlly, RelationEnemy, RelationFamily,
	RelationRival, RelationMemberOf, RelationLocatedIn, RelationOwns,
	RelationAssociated,
}

// ParseRelationType validates a relationship type string.
func ParseRelationType(s string) (RelationType, bool) {
	rt := RelationType(s)
	for _, v := range ValidRelationTypes {
		if rt == v {
			return rt, true
		}
	}
	return "", false
}

// Relationship represents a directed connection between two entities.
type Relationship struct {
	ID             string       `json:"id"`
	SagaID         string       `json:"saga_id"`
	SourceEntityID string       `json:"source_entity_id"`
	TargetEntityID string       `json:"target_entity_id"`
	Type           RelationType `json:"type"`
	Strength       int          `json:"strength"` // [0,100]
	CreatedAt      time.Time    `json:"created_at"`
}
