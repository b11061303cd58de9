package models

import "time"

type ReactionKind string

const (
	ReactionLike  ReactionKind = "LIKE"
	ReactionLove  ReactionKind = "LOVE"
	ReactionWow   ReactionKind = "WOW"
	ReactionLaugh ReactionKind = "LAUGH"
	ReactionSad   ReactionKind = "SAD"
	ReactionAngry ReactionKind = "ANGRY"
)

// ValidReactionKind reports whether kind is one of the fixed reaction values.
func ValidReactionKind(kind ReactionKind) bool {
	switch kind {
	case ReactionLike, ReactionLove, ReactionWow, ReactionLaugh, ReactionSad, ReactionAngry:
		return true
	}
	return false
}

// Reaction holds at most one row per (message, member). Re-applying the
// same kind toggles the row off; a different kind replaces it.
type Reaction struct {
	MessageID uint         `gorm:"primaryKey;column:message_id" json:"message_id"`
	MemberID  uint         `gorm:"primaryKey;column:member_id" json:"member_id"`
	Kind      ReactionKind `gorm:"type:varchar(10);column:kind" json:"kind"`
	CreatedAt time.Time    `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}
