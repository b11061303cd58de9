package models

import "time"

type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement;column:message_id" json:"message_id"`
	ConversationID uint      `gorm:"index;column:conversation_id" json:"conversation_id"`
	SenderID       uint      `gorm:"column:sender_id" json:"sender_id"`
	Content        string    `gorm:"type:text;column:content" json:"content"`
	IsEdited       bool      `gorm:"column:is_edited" json:"is_edited"`
	IsDeleted      bool      `gorm:"column:is_deleted" json:"is_deleted"`
	ReplyTo        *uint     `gorm:"column:reply_to" json:"reply_to"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index;column:created_at" json:"created_at"`

	Attachments []Attachment `gorm:"foreignKey:MessageID" json:"attachments,omitempty"`
	Reactions   []Reaction   `gorm:"foreignKey:MessageID" json:"reactions,omitempty"`
}
