package models

type DeliveryState string

const (
	DeliveryUnread DeliveryState = "UNREAD"
	DeliveryRead   DeliveryState = "READ"
)

// DeliveryStatus tracks the read flag of one message for one member.
// A row is created for every conversation member except the sender at
// send time and only ever moves UNREAD -> READ.
type DeliveryStatus struct {
	MessageID uint          `gorm:"primaryKey;column:message_id" json:"message_id"`
	MemberID  uint          `gorm:"primaryKey;column:member_id" json:"member_id"`
	Status    DeliveryState `gorm:"type:varchar(10);column:status" json:"status"`
}
