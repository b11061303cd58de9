package services

import (
	"context"

	"github.com/Instant-Chat-App/InstantChat-Server/models"
	"github.com/Instant-Chat-App/InstantChat-Server/repositories"
	"go.uber.org/zap"
)

// DeliveryService maintains the per-(message, member) read flag.
type DeliveryService struct {
	delivery      repositories.DeliveryRepository
	conversations repositories.ConversationRepository
	log           *zap.Logger
}

func NewDeliveryService(
	delivery repositories.DeliveryRepository,
	conversations repositories.ConversationRepository,
	log *zap.Logger,
) *DeliveryService {
	return &DeliveryService{
		delivery:      delivery,
		conversations: conversations,
		log:           log.With(zap.String("service", "delivery")),
	}
}

// TrackSend creates one UNREAD row for every current conversation
// member except the sender. Invoked by the message engine right after a
// message is persisted.
func (s *DeliveryService) TrackSend(ctx context.Context, msg *models.Message) error {
	members, err := s.conversations.Members(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	recipients := make([]uint, 0, len(members))
	for _, m := range members {
		if m.MemberID != msg.SenderID {
			recipients = append(recipients, m.MemberID)
		}
	}
	return s.delivery.CreateUnread(ctx, msg.ID, recipients)
}

// MarkRead flips every UNREAD row the member holds across the
// conversation's messages. Calling it again is a no-op.
func (s *DeliveryService) MarkRead(ctx context.Context, memberID, conversationID uint) (int64, error) {
	updated, err := s.delivery.MarkRead(ctx, memberID, conversationID)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.log.Debug("marked messages read",
			zap.Uint("member_id", memberID),
			zap.Uint("conversation_id", conversationID),
			zap.Int64("updated", updated))
	}
	return updated, nil
}

func (s *DeliveryService) UnreadCount(ctx context.Context, memberID, conversationID uint) (int64, error) {
	return s.delivery.UnreadCount(ctx, memberID, conversationID)
}

// Statuses returns the per-member read flags of one message, the read
// receipts a sender sees.
func (s *DeliveryService) Statuses(ctx context.Context, messageID uint) ([]models.DeliveryStatus, error) {
	return s.delivery.StatusesForMessage(ctx, messageID)
}
