package realtime

import "github.com/google/uuid"

// EventType names a server->client broadcast. Each successful mutation
// mirrors into exactly one of these.
type EventType string

const (
	EventNewMessage          EventType = "newMessage"
	EventMessageEdited       EventType = "messageEdited"
	EventMessageDeleted      EventType = "messageDeleted"
	EventReactionChanged     EventType = "reactionChanged"
	EventMemberAdded         EventType = "memberAdded"
	EventMemberRemoved       EventType = "memberRemoved"
	EventConversationRenamed EventType = "conversationRenamed"
	EventCoverChanged        EventType = "coverChanged"
	EventConversationDeleted EventType = "conversationDeleted"
)

// Event is one broadcast on the coordination channel. Delivery is
// at-least-once and unordered across processes; the uuid id plus the
// entity ids in the payload let clients apply events idempotently.
type Event struct {
	ID             string      `json:"event_id"`
	Type           EventType   `json:"type"`
	ConversationID uint        `json:"conversation_id"`
	Payload        interface{} `json:"payload"`
}

func NewEvent(eventType EventType, conversationID uint, payload interface{}) Event {
	return Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		ConversationID: conversationID,
		Payload:        payload,
	}
}
