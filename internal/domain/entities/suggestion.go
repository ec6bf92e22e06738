package entities

import "time"

// SuggestionStatus tracks the review lifecycle of a suggestion. Suggestions
// are never deleted, only transitioned out of pending.
type SuggestionStatus string

const (
	StatusPending      SuggestionStatus = "pending"
	StatusAccepted     SuggestionStatus = "accepted"
	StatusRejected     SuggestionStatus = "rejected"
	StatusModified     SuggestionStatus = "modified"
	StatusAutoAccepted SuggestionStatus = "auto_accepted"
	StatusDismissed    SuggestionStatus = "dismissed"
)

// Suggestion is a confidence-rated relationship proposal between two entities.
//
// Invariants: SourceEntityID < TargetEntityID (pairs are unordered, stored in
// canonical order, and never self-referential), and at most one suggestion
// exists per (saga, source, target, suggested type).
type Suggestion struct {
	ID                    string           `json:"id"`
	SagaID                string           `json:"saga_id"`
	SourceEntityID        string           `json:"source_entity_id"`
	TargetEntityID        string           `json:"target_entity_id"`
	SuggestedType         RelationType     `json:"suggested_type"`
	Confidence            float64          `json:"confidence"` // [0,100]
	Strength              int              `json:"strength"`   // [0,100]
	PriorityScore         float64          `json:"priority_score"`
	Reasoning             string           `json:"reasoning,omitempty"`
	Features              FeatureVector    `json:"features"` // snapshot at scoring time
	Status                SuggestionStatus `json:"status"`
	CreatedRelationshipID *string          `json:"created_relationship_id,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// Terminal reports whether the suggestion has already been actioned.
func (s SuggestionStatus) Terminal() bool {
	return s != StatusPending
}

// CanonicalPair orders two entity IDs so unordered pairs have one stored form.
func CanonicalPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}
