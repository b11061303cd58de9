package repositories

import (
	"context"

	"github.com/Instant-Chat-App/InstantChat-Server/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeliveryRepository interface {
	CreateUnread(ctx context.Context, messageID uint, memberIDs []uint) error
	MarkRead(ctx context.Context, memberID, conversationID uint) (int64, error)
	UnreadCount(ctx context.Context, memberID, conversationID uint) (int64, error)
	UnreadCounts(ctx context.Context, memberID uint) (map[uint]int64, error)
	StatusesForMessage(ctx context.Context, messageID uint) ([]models.DeliveryStatus, error)
}

type deliveryRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewDeliveryRepository(db *gorm.DB, log *zap.Logger) DeliveryRepository {
	return &deliveryRepository{db: db, log: log.With(zap.String("repository", "delivery"))}
}

// CreateUnread inserts one UNREAD row per recipient. OnConflict keeps a
// replayed send from downgrading rows a fast reader already flipped.
func (r *deliveryRepository) CreateUnread(ctx context.Context, messageID uint, memberIDs []uint) error {
	if len(memberIDs) == 0 {
		return nil
	}
	rows := make([]models.DeliveryStatus, 0, len(memberIDs))
	for _, id := range memberIDs {
		rows = append(rows, models.DeliveryStatus{
			MessageID: messageID,
			MemberID:  id,
			Status:    models.DeliveryUnread,
		})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

// MarkRead flips every UNREAD row the member holds in the conversation
// and returns how many moved. Idempotent.
func (r *deliveryRepository) MarkRead(ctx context.Context, memberID, conversationID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.DeliveryStatus{}).
		Where("member_id = ? AND status = ? AND message_id IN (?)",
			memberID, models.DeliveryUnread,
			r.db.Model(&models.Message{}).Select("message_id").Where("conversation_id = ?", conversationID),
		).
		Update("status", models.DeliveryRead)
	return res.RowsAffected, res.Error
}

func (r *deliveryRepository) UnreadCount(ctx context.Context, memberID, conversationID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DeliveryStatus{}).
		Joins("JOIN messages ON messages.message_id = delivery_statuses.message_id").
		Where("delivery_statuses.member_id = ? AND delivery_statuses.status = ? AND messages.conversation_id = ?",
			memberID, models.DeliveryUnread, conversationID).
		Count(&count).Error
	return count, err
}

// UnreadCounts groups the member's unread rows by conversation for the
// conversation-list view.
func (r *deliveryRepository) UnreadCounts(ctx context.Context, memberID uint) (map[uint]int64, error) {
	var rows []struct {
		ConversationID uint
		Total          int64
	}
	err := r.db.WithContext(ctx).Model(&models.DeliveryStatus{}).
		Select("messages.conversation_id AS conversation_id, COUNT(*) AS total").
		Joins("JOIN messages ON messages.message_id = delivery_statuses.message_id").
		Where("delivery_statuses.member_id = ? AND delivery_statuses.status = ?", memberID, models.DeliveryUnread).
		Group("messages.conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.ConversationID] = row.Total
	}
	return counts, nil
}

func (r *deliveryRepository) StatusesForMessage(ctx context.Context, messageID uint) ([]models.DeliveryStatus, error) {
	var statuses []models.DeliveryStatus
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("member_id").
		Find(&statuses).Error
	return statuses, err
}
