package repositories

import (
	"context"
	"errors"

	chaterr "github.com/Instant-Chat-App/InstantChat-Server/errors"
	"github.com/Instant-Chat-App/InstantChat-Server/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository persists conversations and their memberships.
// Memberships are owned rows of the conversation, not a separate
// aggregate, so they live behind the same interface.
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation, members []models.Membership) error
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	FindPrivateBetween(ctx context.Context, a, b uint) (*models.Conversation, error)
	ListForMember(ctx context.Context, memberID uint) ([]models.Conversation, error)
	UpdateName(ctx context.Context, id uint, name string) error
	UpdateCoverImage(ctx context.Context, id uint, url string) error
	Delete(ctx context.Context, id uint) error

	Members(ctx context.Context, conversationID uint) ([]models.Membership, error)
	GetMember(ctx context.Context, conversationID, memberID uint) (*models.Membership, error)
	AddMembers(ctx context.Context, conversationID uint, memberIDs []uint) error
	RemoveMember(ctx context.Context, conversationID, memberID uint) error
}

type conversationRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewConversationRepository(db *gorm.DB, log *zap.Logger) ConversationRepository {
	return &conversationRepository{db: db, log: log.With(zap.String("repository", "conversation"))}
}

func (r *conversationRepository) Create(ctx context.Context, conv *models.Conversation, members []models.Membership) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		for i := range members {
			members[i].ConversationID = conv.ID
		}
		return tx.Create(&members).Error
	})
}

func (r *conversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).First(&conv, "conversation_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, chaterr.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindPrivateBetween looks up the PRIVATE conversation whose membership
// set is exactly {a, b}. PRIVATE conversations always carry two members,
// so joining the membership table twice is sufficient.
func (r *conversationRepository) FindPrivateBetween(ctx context.Context, a, b uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN memberships m1 ON m1.conversation_id = conversations.conversation_id AND m1.member_id = ?", a).
		Joins("JOIN memberships m2 ON m2.conversation_id = conversations.conversation_id AND m2.member_id = ?", b).
		Where("conversations.kind = ?", models.ConversationPrivate).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, chaterr.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) ListForMember(ctx context.Context, memberID uint) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.conversation_id = conversations.conversation_id AND memberships.member_id = ?", memberID).
		Order("conversations.conversation_id").
		Find(&convs).Error
	return convs, err
}

func (r *conversationRepository) UpdateName(ctx context.Context, id uint, name string) error {
	return r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("conversation_id = ?", id).
		Update("name", name).Error
}

func (r *conversationRepository) UpdateCoverImage(ctx context.Context, id uint, url string) error {
	return r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("conversation_id = ?", id).
		Update("cover_image", url).Error
}

// Delete removes the conversation and every dependent row: memberships,
// messages and the attachments, reactions and delivery statuses hanging
// off those messages.
func (r *conversationRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		messageIDs := tx.Model(&models.Message{}).Select("message_id").Where("conversation_id = ?", id)
		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&models.DeliveryStatus{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Conversation{}, "conversation_id = ?", id).Error
	})
}

func (r *conversationRepository) Members(ctx context.Context, conversationID uint) ([]models.Membership, error) {
	var members []models.Membership
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("joined_at, member_id").
		Find(&members).Error
	return members, err
}

func (r *conversationRepository) GetMember(ctx context.Context, conversationID, memberID uint) (*models.Membership, error) {
	var member models.Membership
	err := r.db.WithContext(ctx).
		First(&member, "conversation_id = ? AND member_id = ?", conversationID, memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, chaterr.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// AddMembers inserts non-owner memberships, silently skipping ids that
// are already members.
func (r *conversationRepository) AddMembers(ctx context.Context, conversationID uint, memberIDs []uint) error {
	if len(memberIDs) == 0 {
		return nil
	}
	members := make([]models.Membership, 0, len(memberIDs))
	for _, id := range memberIDs {
		members = append(members, models.Membership{ConversationID: conversationID, MemberID: id})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&members).Error
}

func (r *conversationRepository) RemoveMember(ctx context.Context, conversationID, memberID uint) error {
	res := r.db.WithContext(ctx).
		Where("conversation_id = ? AND member_id = ?", conversationID, memberID).
		Delete(&models.Membership{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterr.ErrMemberNotFound
	}
	return nil
}
