package models

import "time"

// Membership links a member to a conversation. One row per
// (conversation, member) pair; re-adding an existing member is a no-op.
type Membership struct {
	ConversationID uint      `gorm:"primaryKey;column:conversation_id" json:"conversation_id"`
	MemberID       uint      `gorm:"primaryKey;column:member_id" json:"member_id"`
	IsOwner        bool      `gorm:"column:is_owner" json:"is_owner"`
	JoinedAt       time.Time `gorm:"autoCreateTime;column:joined_at" json:"joined_at"`
}
