package entities

import "time"

// FeedbackAction is a reviewer decision on a suggestion.
type FeedbackAction string

const (
	ActionAccept  FeedbackAction = "accept"
	ActionReject  FeedbackAction = "reject"
	ActionModify  FeedbackAction = "modify"
	ActionDismiss FeedbackAction = "dismiss"
)

// ParseFeedbackAction validates an action string.
func ParseFeedbackAction(s string) (FeedbackAction, bool) {
	switch a := FeedbackAction(s); a {
	case ActionAccept, ActionReject, ActionModify, ActionDismiss:
		return a, true
	}
	return "", false
}

// Status returns the suggestion status an action transitions to.
func (a FeedbackAction) Status() SuggestionStatus {
	switch a {
	case ActionAccept:
		return StatusAccepted
	case ActionReject:
		return StatusRejected
	case ActionModify:
		return StatusModified
	default:
		return StatusDismissed
	}
}

// Feedback is one append-only log entry recording a reviewer decision.
// Features is the snapshot frozen at decision time; the learning engine reads
// it verbatim so later entity edits cannot retroactively bias updates.
type Feedback struct {
	ID                string         `json:"id"`
	SuggestionID      string         `json:"suggestion_id"`
	Action            FeedbackAction `json:"action"`
	CorrectedType     *RelationType  `json:"corrected_type,omitempty"`
	CorrectedStrength *int           `json:"corrected_strength,omitempty"`
	Note              string         `json:"note,omitempty"`
	Features          FeatureVector  `json:"features"`
	DecisionLatency   time.Duration  `json:"decision_latency"`
	CreatedAt         time.Time      `json:"created_at"`
}
