package models

import (
	"fmt"
	"time"
)

type ConversationKind string

const (
	ConversationPrivate ConversationKind = "PRIVATE"
	ConversationGroup   ConversationKind = "GROUP"
	ConversationChannel ConversationKind = "CHANNEL"
)

type Conversation struct {
	ID          uint             `gorm:"primaryKey;autoIncrement;column:conversation_id" json:"conversation_id"`
	Kind        ConversationKind `gorm:"type:varchar(10);index;column:kind" json:"kind"`
	Name        *string          `gorm:"column:name" json:"name"`
	CoverImage  *string          `gorm:"column:cover_image" json:"cover_image"`
	Description *string          `gorm:"column:description" json:"description"`
	PairKey     *string          `gorm:"uniqueIndex;size:64;column:pair_key" json:"-"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`

	Members []Membership `gorm:"foreignKey:ConversationID" json:"members,omitempty"`
}

// IsGroupOrChannel reports whether membership management applies at all;
// PRIVATE conversations have a fixed pair of members.
func (c *Conversation) IsGroupOrChannel() bool {
	return c.Kind == ConversationGroup || c.Kind == ConversationChannel
}

// PrivatePairKey canonicalizes the member pair of a PRIVATE
// conversation. The unique index over it makes creation at-most-once
// per unordered pair even when two requests race past the lookup.
func PrivatePairKey(a, b uint) *string {
	if b < a {
		a, b = b, a
	}
	key := fmt.Sprintf("%d:%d", a, b)
	return &key
}
