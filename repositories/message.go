package repositories

import (
	"context"
	"errors"

	chaterr "github.com/Instant-Chat-App/InstantChat-Server/errors"
	"github.com/Instant-Chat-App/InstantChat-Server/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message, attachments []models.Attachment) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	ListByConversation(ctx context.Context, conversationID uint) ([]models.Message, error)
	LatestPerConversation(ctx context.Context, conversationIDs []uint) (map[uint]models.Message, error)
	SetContent(ctx context.Context, id uint, content string) error
	SoftDelete(ctx context.Context, id uint) error
}

type messageRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewMessageRepository(db *gorm.DB, log *zap.Logger) MessageRepository {
	return &messageRepository{db: db, log: log.With(zap.String("repository", "message"))}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message, attachments []models.Attachment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		if len(attachments) == 0 {
			return nil
		}
		for i := range attachments {
			attachments[i].MessageID = msg.ID
		}
		if err := tx.Create(&attachments).Error; err != nil {
			return err
		}
		msg.Attachments = attachments
		return nil
	})
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Preload("Reactions").
		First(&msg, "message_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, chaterr.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListByConversation returns the persisted history in timestamp order;
// the message id breaks ties between rows created in the same instant.
func (r *messageRepository) ListByConversation(ctx context.Context, conversationID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Preload("Reactions").
		Where("conversation_id = ?", conversationID).
		Order("created_at, message_id").
		Find(&msgs).Error
	return msgs, err
}

// LatestPerConversation fetches the newest message of each listed
// conversation for the conversation-list preview.
func (r *messageRepository) LatestPerConversation(ctx context.Context, conversationIDs []uint) (map[uint]models.Message, error) {
	latest := make(map[uint]models.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return latest, nil
	}
	var msgs []models.Message
	err := r.db.WithContext(ctx).
		Where("message_id IN (SELECT MAX(message_id) FROM messages WHERE conversation_id IN (?) GROUP BY conversation_id)", conversationIDs).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		latest[msg.ConversationID] = msg
	}
	return latest, nil
}

func (r *messageRepository) SetContent(ctx context.Context, id uint, content string) error {
	return r.db.WithContext(ctx).Model(&models.Message{}).
		Where("message_id = ?", id).
		Updates(map[string]interface{}{"content": content, "is_edited": true}).Error
}

// SoftDelete clears the content and flags the row; the row itself stays
// so replies keep a valid target. Reactions go with the message,
// delivery statuses are kept so unread counts stay consistent.
func (r *messageRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Message{}).
			Where("message_id = ?", id).
			Updates(map[string]interface{}{"content": "", "is_deleted": true}).Error
		if err != nil {
			return err
		}
		return tx.Where("message_id = ?", id).Delete(&models.Reaction{}).Error
	})
}
