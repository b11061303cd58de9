package services

import (
	"context"
	"testing"

	"github.com/Instant-Chat-App/InstantChat-Server/models"
	"github.com/Instant-Chat-App/InstantChat-Server/repositories"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testEnv wires the full service stack over an in-memory database.
type testEnv struct {
	db         *gorm.DB
	membership *MembershipService
	messages   *MessageService
	delivery   *DeliveryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection, or every pooled connection gets its own :memory: db.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(db))

	log := zap.NewNop()
	conversationRepo := repositories.NewConversationRepository(db, log)
	messageRepo := repositories.NewMessageRepository(db, log)
	reactionRepo := repositories.NewReactionRepository(db, log)
	deliveryRepo := repositories.NewDeliveryRepository(db, log)

	delivery := NewDeliveryService(deliveryRepo, conversationRepo, log)
	return &testEnv{
		db:         db,
		membership: NewMembershipService(conversationRepo, messageRepo, deliveryRepo, log),
		messages:   NewMessageService(messageRepo, reactionRepo, conversationRepo, delivery, log),
		delivery:   delivery,
	}
}

func (e *testEnv) createGroup(t *testing.T, ownerID uint, memberIDs ...uint) *models.Conversation {
	t.Helper()
	conv, err := e.membership.CreateGroup(context.Background(), ownerID, "test group", memberIDs, "")
	require.NoError(t, err)
	return conv
}

func (e *testEnv) send(t *testing.T, senderID, conversationID uint, content string) *models.Message {
	t.Helper()
	msg, err := e.messages.Send(context.Background(), senderID, conversationID, content, nil, nil)
	require.NoError(t, err)
	return msg
}
