package models

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "IMAGE"
	AttachmentVideo AttachmentKind = "VIDEO"
	AttachmentRaw   AttachmentKind = "RAW"
)

// Attachment belongs to exactly one message and is never mutated after
// creation. Only the resulting URL is stored; the bytes live on the
// content host.
type Attachment struct {
	ID        uint           `gorm:"primaryKey;autoIncrement;column:attachment_id" json:"attachment_id"`
	MessageID uint           `gorm:"index;column:message_id" json:"message_id"`
	URL       string         `gorm:"column:url" json:"url"`
	Kind      AttachmentKind `gorm:"type:varchar(10);column:kind" json:"kind"`
}
