package services

import (
	"context"
	"testing"

	chaterr "github.com/Instant-Chat-App/InstantChat-Server/errors"
	"github.com/Instant-Chat-App/InstantChat-Server/models"
	"github.com/stretchr/testify/require"
)

func Test_TrackSend_Creates_Unread_Rows_For_Everyone_Else(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	conv := env.createGroup(t, 1, 2, 3)

	msg := env.send(t, 2, conv.ID, "hi all")

	var rows []models.DeliveryStatus
	req.NoError(env.db.Where("message_id = ?", msg.ID).Order("member_id").Find(&rows).Error)
	req.Len(rows, 2)
	req.Equal(uint(1), rows[0].MemberID)
	req.Equal(uint(3), rows[1].MemberID)
	for _, row := range rows {
		req.Equal(models.DeliveryUnread, row.Status)
	}
}

func Test_MarkRead_Flips_Only_The_Readers_Rows(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	conv := env.createGroup(t, 1, 2, 3)

	msg := env.send(t, 2, conv.ID, "unread for 1 and 3")

	flipped, err := env.delivery.MarkRead(ctx, 1, conv.ID)
	req.NoError(err)
	req.Equal(int64(1), flipped)

	// Fresh destination structs: reusing one would leak its primary key
	// into the next query's conditions.
	var readerRow models.DeliveryStatus
	req.NoError(env.db.Where("message_id = ? AND member_id = ?", msg.ID, 1).First(&readerRow).Error)
	req.Equal(models.DeliveryRead, readerRow.Status)
	var otherRow models.DeliveryStatus
	req.NoError(env.db.Where("message_id = ? AND member_id = ?", msg.ID, 3).First(&otherRow).Error)
	req.Equal(models.DeliveryUnread, otherRow.Status)
}

func Test_MarkRead_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	conv := env.createGroup(t, 1, 2)

	env.send(t, 2, conv.ID, "one")
	env.send(t, 2, conv.ID, "two")

	flipped, err := env.delivery.MarkRead(ctx, 1, conv.ID)
	req.NoError(err)
	req.Equal(int64(2), flipped)

	flipped, err = env.delivery.MarkRead(ctx, 1, conv.ID)
	req.NoError(err)
	req.Zero(flipped)

	count, err := env.delivery.UnreadCount(ctx, 1, conv.ID)
	req.NoError(err)
	req.Zero(count)
}

func Test_DeliveryStatuses_Member_Only(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	conv := env.createGroup(t, 1, 2, 3)
	msg := env.send(t, 1, conv.ID, "receipts")

	_, err := env.messages.DeliveryStatuses(ctx, 9, msg.ID)
	req.ErrorIs(err, chaterr.ErrNotMember)

	_, err = env.delivery.MarkRead(ctx, 2, conv.ID)
	req.NoError(err)

	statuses, err := env.messages.DeliveryStatuses(ctx, 1, msg.ID)
	req.NoError(err)
	req.Len(statuses, 2)
	req.Equal(models.DeliveryRead, statuses[0].Status)   // member 2
	req.Equal(models.DeliveryUnread, statuses[1].Status) // member 3
}

func Test_UnreadCount_Scoped_Per_Conversation(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	convA := env.createGroup(t, 1, 2)
	convB := env.createGroup(t, 1, 2)

	env.send(t, 2, convA.ID, "a1")
	env.send(t, 2, convA.ID, "a2")
	env.send(t, 2, convB.ID, "b1")

	count, err := env.delivery.UnreadCount(ctx, 1, convA.ID)
	req.NoError(err)
	req.Equal(int64(2), count)

	count, err = env.delivery.UnreadCount(ctx, 1, convB.ID)
	req.NoError(err)
	req.Equal(int64(1), count)

	// The sender never gets rows of their own.
	count, err = env.delivery.UnreadCount(ctx, 2, convA.ID)
	req.NoError(err)
	req.Zero(count)
}
