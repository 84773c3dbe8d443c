package models

import "time"

// ReactionActivity records the current reaction of one user on one story or post.
// The aggregate counts live on the parent's stats; the sum of activities of a type
// equals the parent's count for that type.
type ReactionActivity struct {
	ID         string       `json:"id"`
	EntityType EntityType   `json:"entity_type"`
	EntityID   string       `json:"entity_id"`
	UserID     string       `json:"user_id"`
	Type       ReactionType `json:"type"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ReactionActivityID is the deterministic id of the activity of userID on an entity.
func ReactionActivityID(entityType EntityType, entityID, userID string) string {
	return string(entityType) + "_" + entityID + "_" + userID
}

// ReactionOutcome describes what a React call did.
type ReactionOutcome string

const (
	ReactionAdded    ReactionOutcome = "ADDED"
	ReactionRemoved  ReactionOutcome = "REMOVED"
	ReactionSwitched ReactionOutcome = "SWITCHED"
)

// ReactionChange is the transition applied by a React call.
// Previous is empty when the user had no reaction; Current is empty when it was removed.
type ReactionChange struct {
	Outcome  ReactionOutcome `json:"outcome"`
	Previous ReactionType    `json:"previous,omitempty"`
	Current  ReactionType    `json:"current,omitempty"`
}

// ResolveReaction computes the transition when a user with reaction prev (empty for none) reacts with t.
// Reacting with the same type toggles it off.
func ResolveReaction(prev, t ReactionType) ReactionChange {
	switch {
	case prev == "":
		return ReactionChange{Outcome: ReactionAdded, Current: t}
	case prev == t:
		return ReactionChange{Outcome: ReactionRemoved, Previous: prev}
	default:
		return ReactionChange{Outcome: ReactionSwitched, Previous: prev, Current: t}
	}
}

// ReactRequest defines the request body for reacting to a story or post
type ReactRequest struct {
	Type string `json:"type" validate:"required,oneof=LIKE LOVE HAHA WOW SAD ANGRY CARE"`
}
