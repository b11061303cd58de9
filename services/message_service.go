package services

import (
	"context"
	"strings"

	chaterr "github.com/Instant-Chat-App/InstantChat-Server/errors"
	"github.com/Instant-Chat-App/InstantChat-Server/models"
	"github.com/Instant-Chat-App/InstantChat-Server/repositories"
	"go.uber.org/zap"
)

// AttachmentInput carries the already-uploaded address of one
// attachment; the bytes never pass through this service.
type AttachmentInput struct {
	URL  string                `json:"url"`
	Kind models.AttachmentKind `json:"kind"`
}

// MessageService drives the message lifecycle: Active -> Edited* ->
// Deleted, where Deleted is terminal.
type MessageService struct {
	messages      repositories.MessageRepository
	reactions     repositories.ReactionRepository
	conversations repositories.ConversationRepository
	delivery      *DeliveryService
	log           *zap.Logger
}

func NewMessageService(
	messages repositories.MessageRepository,
	reactions repositories.ReactionRepository,
	conversations repositories.ConversationRepository,
	delivery *DeliveryService,
	log *zap.Logger,
) *MessageService {
	return &MessageService{
		messages:      messages,
		reactions:     reactions,
		conversations: conversations,
		delivery:      delivery,
		log:           log.With(zap.String("service", "message")),
	}
}

// Send persists a message and its attachments, then tracks delivery for
// every other member before returning.
func (s *MessageService) Send(ctx context.Context, senderID, conversationID uint, content string, attachments []AttachmentInput, replyTo *uint) (*models.Message, error) {
	if _, err := s.conversations.GetByID(ctx, conversationID); err != nil {
		return nil, err
	}
	if _, err := s.conversations.GetMember(ctx, conversationID, senderID); err != nil {
		if chaterr.Is(err, chaterr.ErrMemberNotFound) {
			return nil, chaterr.ErrNotMember
		}
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" && len(attachments) == 0 {
		return nil, chaterr.ErrEmptyMessage
	}
	if replyTo != nil {
		target, err := s.messages.GetByID(ctx, *replyTo)
		if err != nil {
			if chaterr.Is(err, chaterr.ErrMessageNotFound) {
				return nil, chaterr.ErrInvalidReplyTarget
			}
			return nil, err
		}
		if target.ConversationID != conversationID {
			return nil, chaterr.ErrInvalidReplyTarget
		}
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		ReplyTo:        replyTo,
	}
	rows := make([]models.Attachment, 0, len(attachments))
	for _, a := range attachments {
		rows = append(rows, models.Attachment{URL: a.URL, Kind: a.Kind})
	}
	if err := s.messages.Create(ctx, msg, rows); err != nil {
		return nil, err
	}
	if err := s.delivery.TrackSend(ctx, msg); err != nil {
		return nil, err
	}
	s.log.Info("message sent",
		zap.Uint("message_id", msg.ID),
		zap.Uint("conversation_id", conversationID),
		zap.Uint("sender_id", senderID))
	return msg, nil
}

// Edit replaces the content, sender-only. The edited flag sticks for
// the rest of the message's life.
func (s *MessageService) Edit(ctx context.Context, actorID, messageID uint, content string) (*models.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actorID {
		return nil, chaterr.ErrNotSender
	}
	if msg.IsDeleted {
		return nil, chaterr.ErrMessageDeleted
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, chaterr.ErrEmptyMessage
	}
	if content == msg.Content {
		return nil, chaterr.ErrNoChange
	}
	if err := s.messages.SetContent(ctx, messageID, content); err != nil {
		return nil, err
	}
	msg.Content = content
	msg.IsEdited = true
	return msg, nil
}

// Delete soft-deletes, sender-only: content cleared, row retained for
// thread integrity, reactions dropped, delivery statuses untouched.
func (s *MessageService) Delete(ctx context.Context, actorID, messageID uint) (*models.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actorID {
		return nil, chaterr.ErrNotSender
	}
	if msg.IsDeleted {
		return nil, chaterr.ErrAlreadyDeleted
	}
	if err := s.messages.SoftDelete(ctx, messageID); err != nil {
		return nil, err
	}
	msg.Content = ""
	msg.IsDeleted = true
	msg.Reactions = nil
	s.log.Info("message deleted", zap.Uint("message_id", messageID))
	return msg, nil
}

// React applies the toggle contract and returns the message's resulting
// reaction set for broadcast.
func (s *MessageService) React(ctx context.Context, actorID, messageID uint, kind models.ReactionKind) ([]models.Reaction, error) {
	if !models.ValidReactionKind(kind) {
		return nil, chaterr.ErrInvalidReaction
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.IsDeleted {
		return nil, chaterr.ErrMessageDeleted
	}
	if _, err := s.reactions.Toggle(ctx, messageID, actorID, kind); err != nil {
		return nil, err
	}
	return s.reactions.ListByMessage(ctx, messageID)
}

// RemoveReaction deletes the actor's reaction outright.
func (s *MessageService) RemoveReaction(ctx context.Context, actorID, messageID uint) ([]models.Reaction, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.IsDeleted {
		return nil, chaterr.ErrMessageDeleted
	}
	if err := s.reactions.Remove(ctx, messageID, actorID); err != nil {
		return nil, err
	}
	return s.reactions.ListByMessage(ctx, messageID)
}

// ListConversationMessages returns the timestamp-ordered history and
// marks the caller's unread rows READ, the same way a client fetch does.
func (s *MessageService) ListConversationMessages(ctx context.Context, memberID, conversationID uint) ([]models.Message, error) {
	if _, err := s.conversations.GetByID(ctx, conversationID); err != nil {
		return nil, err
	}
	if _, err := s.conversations.GetMember(ctx, conversationID, memberID); err != nil {
		if chaterr.Is(err, chaterr.ErrMemberNotFound) {
			return nil, chaterr.ErrNotMember
		}
		return nil, err
	}
	msgs, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.delivery.MarkRead(ctx, memberID, conversationID); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Get loads one message with its attachments and reactions.
func (s *MessageService) Get(ctx context.Context, messageID uint) (*models.Message, error) {
	return s.messages.GetByID(ctx, messageID)
}

// DeliveryStatuses returns the message's read receipts, visible to any
// member of its conversation.
func (s *MessageService) DeliveryStatuses(ctx context.Context, actorID, messageID uint) ([]models.DeliveryStatus, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.conversations.GetMember(ctx, msg.ConversationID, actorID); err != nil {
		if chaterr.Is(err, chaterr.ErrMemberNotFound) {
			return nil, chaterr.ErrNotMember
		}
		return nil, err
	}
	return s.delivery.Statuses(ctx, messageID)
}
