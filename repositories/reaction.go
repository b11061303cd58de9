package repositories

import (
	"context"

	chaterr "github.com/Instant-Chat-App/InstantChat-Server/errors"
	"github.com/Instant-Chat-App/InstantChat-Server/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReactionRepository interface {
	// Toggle applies the (message, member) upsert contract: same kind
	// removes the row, a different kind replaces it, no row creates it.
	// removed reports whether the call ended with no reaction left.
	Toggle(ctx context.Context, messageID, memberID uint, kind models.ReactionKind) (removed bool, err error)
	Remove(ctx context.Context, messageID, memberID uint) error
	ListByMessage(ctx context.Context, messageID uint) ([]models.Reaction, error)
}

type reactionRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewReactionRepository(db *gorm.DB, log *zap.Logger) ReactionRepository {
	return &reactionRepository{db: db, log: log.With(zap.String("repository", "reaction"))}
}

func (r *reactionRepository) Toggle(ctx context.Context, messageID, memberID uint, kind models.ReactionKind) (bool, error) {
	// Toggle-off is a conditional delete keyed on the kind, so it either
	// wins atomically or falls through to the upsert. Concurrent calls
	// from the same member always end on a single row, never a
	// read-modify-write race.
	res := r.db.WithContext(ctx).
		Where("message_id = ? AND member_id = ? AND kind = ?", messageID, memberID, kind).
		Delete(&models.Reaction{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	reaction := models.Reaction{MessageID: messageID, MemberID: memberID, Kind: kind}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "member_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"kind": kind}),
		}).
		Create(&reaction).Error
	return false, err
}

func (r *reactionRepository) Remove(ctx context.Context, messageID, memberID uint) error {
	res := r.db.WithContext(ctx).
		Where("message_id = ? AND member_id = ?", messageID, memberID).
		Delete(&models.Reaction{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return chaterr.ErrNoReaction
	}
	return nil
}

func (r *reactionRepository) ListByMessage(ctx context.Context, messageID uint) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at, member_id").
		Find(&reactions).Error
	return reactions, err
}
