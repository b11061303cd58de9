package services

import (
	"context"
	"sync"
	"testing"

	chaterr "github.com/Instant-Chat-App/InstantChat-Server/errors"
	"github.com/Instant-Chat-App/InstantChat-Server/models"
	"github.com/stretchr/testify/require"
)

func Test_CreatePrivate_Is_Idempotent_Per_Pair(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.membership.CreatePrivate(ctx, 1, 2)
	req.NoError(err)
	req.Equal(models.ConversationPrivate, first.Kind)

	// Same pair again, in either argument order, returns the same id.
	again, err := env.membership.CreatePrivate(ctx, 1, 2)
	req.NoError(err)
	req.Equal(first.ID, again.ID)

	reversed, err := env.membership.CreatePrivate(ctx, 2, 1)
	req.NoError(err)
	req.Equal(first.ID, reversed.ID)

	members, err := env.membership.Members(ctx, first.ID)
	req.NoError(err)
	req.Len(members, 2)
	for _, m := range members {
		req.False(m.IsOwner)
	}
}

func Test_CreatePrivate_Concurrent_Creators_Collapse_To_One_Row(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	const creators = 16
	type result struct {
		id  uint
		err error
	}
	results := make(chan result, creators)
	var wg sync.WaitGroup
	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv, err := env.membership.CreatePrivate(ctx, 1, 2)
			if err != nil {
				results <- result{err: err}
				return
			}
			results <- result{id: conv.ID}
		}()
	}
	wg.Wait()
	close(results)

	var first uint
	for res := range results {
		req.NoError(res.err)
		if first == 0 {
			first = res.id
		}
		req.Equal(first, res.id)
	}
	var count int64
	req.NoError(env.db.Model(&models.Conversation{}).
		Where("kind = ?", models.ConversationPrivate).Count(&count).Error)
	req.Equal(int64(1), count)
}

func Test_Private_Pair_Key_Blocks_Duplicate_Insert(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	_, err := env.membership.CreatePrivate(context.Background(), 1, 2)
	req.NoError(err)

	// An insert that slipped past the lookup hits the unique pair key,
	// in either argument order.
	dup := &models.Conversation{Kind: models.ConversationPrivate, PairKey: models.PrivatePairKey(2, 1)}
	req.Error(env.db.Create(dup).Error)
}

func Test_CreatePrivate_With_Self_Fails(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.membership.CreatePrivate(context.Background(), 7, 7)
	require.ErrorIs(t, err, chaterr.ErrSelfConversation)
}

func Test_CreateGroup_Requires_Members(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.membership.CreateGroup(ctx, 1, "empty", nil, "")
	req.ErrorIs(err, chaterr.ErrEmptyMembers)

	// Listing only the owner again is still empty.
	_, err = env.membership.CreateGroup(ctx, 1, "empty", []uint{1, 1}, "")
	req.ErrorIs(err, chaterr.ErrEmptyMembers)

	// A channel may start owner-only.
	conv, err := env.membership.CreateChannel(ctx, 1, "announcements", nil, "company wide")
	req.NoError(err)
	members, err := env.membership.Members(ctx, conv.ID)
	req.NoError(err)
	req.Len(members, 1)
	req.True(members[0].IsOwner)
	req.NotNil(conv.Description)
}

func Test_CreateGroup_Collapses_Duplicate_Members(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	conv, err := env.membership.CreateGroup(context.Background(), 1, "team", []uint{2, 2, 3, 1}, "")
	req.NoError(err)
	members, err := env.membership.Members(context.Background(), conv.ID)
	req.NoError(err)
	req.Len(members, 3)

	owners := 0
	for _, m := range members {
		if m.IsOwner {
			owners++
			req.Equal(uint(1), m.MemberID)
		}
	}
	req.Equal(1, owners)
}

func Test_AddMembers_Owner_Only_And_Skips_Existing(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	conv := env.createGroup(t, 1, 2, 3)

	_, err := env.membership.AddMembers(ctx, 2, conv.ID, []uint{4})
	req.ErrorIs(err, chaterr.ErrNotOwner)

	added, err := env.membership.AddMembers(ctx, 1, conv.ID, []uint{3, 4, 4, 5})
	req.NoError(err)
	req.Equal([]uint{4, 5}, added)

	members, err := env.membership.Members(ctx, conv.ID)
	req.NoError(err)
	req.Len(members, 5)
}

func Test_AddMembers_Rejects_Private(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	conv, err := env.membership.CreatePrivate(ctx, 1, 2)
	req.NoError(err)
	_, err = env.membership.AddMembers(ctx, 1, conv.ID, []uint{3})
	req.ErrorIs(err, chaterr.ErrNotGroupOrChannel)
}

func Test_Kick_Rules(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	conv := env.createGroup(t, 1, 2, 3)

	// Non-owner cannot kick.
	req.ErrorIs(env.membership.Kick(ctx, 2, conv.ID, 3), chaterr.ErrNotOwner)
	// Nobody kicks an owner.
	req.ErrorIs(env.membership.Kick(ctx, 1, conv.ID, 1), chaterr.ErrCannotKickOwner)

	req.NoError(env.membership.Kick(ctx, 1, conv.ID, 3))

	// The kicked member is gone, so leaving now fails as a non-member.
	err := env.membership.Leave(ctx, 3, conv.ID)
	req.ErrorIs(err, chaterr.ErrNotMember)
}

func Test_Owner_Cannot_Leave(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	conv := env.createGroup(t, 1, 2)

	req.ErrorIs(env.membership.Leave(ctx, 1, conv.ID), chaterr.ErrOwnerCannotLeave)
	req.NoError(env.membership.Leave(ctx, 2, conv.ID))
}

func Test_Rename_Role_Rules(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	group := env.createGroup(t, 1, 2)
	// Any member may rename a group.
	renamed, err := env.membership.Rename(ctx, 2, group.ID, "new name")
	req.NoError(err)
	req.Equal("new name", *renamed.Name)

	channel, err := env.membership.CreateChannel(ctx, 1, "chan", []uint{2}, "")
	req.NoError(err)
	_, err = env.membership.Rename(ctx, 2, channel.ID, "hijacked")
	req.ErrorIs(err, chaterr.ErrNotOwner)
	_, err = env.membership.Rename(ctx, 3, channel.ID, "outsider")
	req.ErrorIs(err, chaterr.ErrNotMember)

	private, err := env.membership.CreatePrivate(ctx, 5, 6)
	req.NoError(err)
	_, err = env.membership.Rename(ctx, 5, private.ID, "nope")
	req.ErrorIs(err, chaterr.ErrNotGroupOrChannel)
}

func Test_SetCoverImage_Channel_Owner_Only(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	channel, err := env.membership.CreateChannel(ctx, 1, "chan", []uint{2}, "")
	req.NoError(err)
	_, err = env.membership.SetCoverImage(ctx, 2, channel.ID, "https://cdn/img.png")
	req.ErrorIs(err, chaterr.ErrNotOwner)

	updated, err := env.membership.SetCoverImage(ctx, 1, channel.ID, "https://cdn/img.png")
	req.NoError(err)
	req.Equal("https://cdn/img.png", *updated.CoverImage)
}

func Test_Delete_Conversation_Cascades(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	conv := env.createGroup(t, 1, 2, 3)

	msg := env.send(t, 2, conv.ID, "hi all")
	_, err := env.messages.React(ctx, 1, msg.ID, models.ReactionLike)
	req.NoError(err)

	// Only an owner may delete.
	req.ErrorIs(env.membership.Delete(ctx, 2, conv.ID), chaterr.ErrNotOwner)
	req.NoError(env.membership.Delete(ctx, 1, conv.ID))

	for model, name := range map[interface{}]string{
		&models.Membership{}:     "memberships",
		&models.Message{}:        "messages",
		&models.Reaction{}:       "reactions",
		&models.DeliveryStatus{}: "delivery statuses",
	} {
		var count int64
		req.NoError(env.db.Model(model).Count(&count).Error)
		req.Zero(count, "expected no %s after cascade", name)
	}

	_, err = env.membership.Members(ctx, conv.ID)
	req.ErrorIs(err, chaterr.ErrConversationNotFound)
}

func Test_ListConversations_Summaries(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	group := env.createGroup(t, 1, 2)
	env.send(t, 1, group.ID, "first")
	last := env.send(t, 2, group.ID, "second")

	summaries, err := env.membership.ListConversations(ctx, 1)
	req.NoError(err)
	req.Len(summaries, 1)
	req.Equal(group.ID, summaries[0].Conversation.ID)
	req.NotNil(summaries[0].LastMessage)
	req.Equal(last.ID, summaries[0].LastMessage.ID)
	req.Equal(int64(1), summaries[0].UnreadCount)
}

func Test_IsMember_Check(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()
	conv := env.createGroup(t, 1, 2)

	ok, err := env.membership.IsMember(ctx, 2, conv.ID)
	req.NoError(err)
	req.True(ok)

	ok, err = env.membership.IsMember(ctx, 9, conv.ID)
	req.NoError(err)
	req.False(ok)
}
