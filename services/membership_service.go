package services

import (
	"context"
	"strings"

	chaterr "github.com/Instant-Chat-App/InstantChat-Server/errors"
	"github.com/Instant-Chat-App/InstantChat-Server/models"
	"github.com/Instant-Chat-App/InstantChat-Server/repositories"
	"go.uber.org/zap"
)

// ConversationSummary is one row of a member's conversation list.
type ConversationSummary struct {
	Conversation models.Conversation `json:"conversation"`
	LastMessage  *models.Message     `json:"last_message,omitempty"`
	UnreadCount  int64               `json:"unread_count"`
}

// MembershipService creates and validates conversations and enforces
// the ownership and role rules over them.
type MembershipService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	delivery      repositories.DeliveryRepository
	log           *zap.Logger
}

func NewMembershipService(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	delivery repositories.DeliveryRepository,
	log *zap.Logger,
) *MembershipService {
	return &MembershipService{
		conversations: conversations,
		messages:      messages,
		delivery:      delivery,
		log:           log.With(zap.String("service", "membership")),
	}
}

// CreatePrivate returns the existing PRIVATE conversation between the
// two members if one exists, so creation is at-most-once per unordered
// pair. Both memberships are non-owner.
func (s *MembershipService) CreatePrivate(ctx context.Context, a, b uint) (*models.Conversation, error) {
	if a == b {
		return nil, chaterr.ErrSelfConversation
	}
	existing, err := s.conversations.FindPrivateBetween(ctx, a, b)
	if err == nil {
		s.log.Debug("private conversation already exists",
			zap.Uint("conversation_id", existing.ID), zap.Uint("a", a), zap.Uint("b", b))
		return existing, nil
	}
	if !chaterr.Is(err, chaterr.ErrConversationNotFound) {
		return nil, err
	}

	conv := &models.Conversation{Kind: models.ConversationPrivate, PairKey: models.PrivatePairKey(a, b)}
	members := []models.Membership{
		{MemberID: a},
		{MemberID: b},
	}
	if err := s.conversations.Create(ctx, conv, members); err != nil {
		// A racing create for the same pair hits the unique pair key;
		// the winner's row is the one to return.
		if existing, lookupErr := s.conversations.FindPrivateBetween(ctx, a, b); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}
	s.log.Info("created private conversation", zap.Uint("conversation_id", conv.ID))
	return conv, nil
}

// CreateGroup creates a GROUP with one owner membership and one
// non-owner membership per listed member. A group needs at least one
// member besides the owner.
func (s *MembershipService) CreateGroup(ctx context.Context, ownerID uint, name string, memberIDs []uint, description string) (*models.Conversation, error) {
	return s.createShared(ctx, models.ConversationGroup, ownerID, name, memberIDs, description)
}

// CreateChannel creates a CHANNEL; unlike a group it may start
// owner-only.
func (s *MembershipService) CreateChannel(ctx context.Context, ownerID uint, name string, memberIDs []uint, description string) (*models.Conversation, error) {
	return s.createShared(ctx, models.ConversationChannel, ownerID, name, memberIDs, description)
}

func (s *MembershipService) createShared(ctx context.Context, kind models.ConversationKind, ownerID uint, name string, memberIDs []uint, description string) (*models.Conversation, error) {
	others := dedupeMembers(memberIDs, ownerID)
	if kind == models.ConversationGroup && len(others) == 0 {
		return nil, chaterr.ErrEmptyMembers
	}

	conv := &models.Conversation{Kind: kind, Name: &name}
	if desc := strings.TrimSpace(description); desc != "" {
		conv.Description = &desc
	}
	members := make([]models.Membership, 0, len(others)+1)
	members = append(members, models.Membership{MemberID: ownerID, IsOwner: true})
	for _, id := range others {
		members = append(members, models.Membership{MemberID: id})
	}
	if err := s.conversations.Create(ctx, conv, members); err != nil {
		return nil, err
	}
	s.log.Info("created conversation",
		zap.String("kind", string(kind)), zap.Uint("conversation_id", conv.ID), zap.Int("members", len(members)))
	return conv, nil
}

// AddMembers is owner-only on groups and channels. Ids already present
// are skipped without error; the added slice reports the rest.
func (s *MembershipService) AddMembers(ctx context.Context, actorID, conversationID uint, memberIDs []uint) ([]uint, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsGroupOrChannel() {
		return nil, chaterr.ErrNotGroupOrChannel
	}
	if err := s.requireOwner(ctx, conversationID, actorID); err != nil {
		return nil, err
	}

	existing, err := s.conversations.Members(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	present := make(map[uint]bool, len(existing))
	for _, m := range existing {
		present[m.MemberID] = true
	}
	added := make([]uint, 0, len(memberIDs))
	for _, id := range dedupeMembers(memberIDs, 0) {
		if !present[id] {
			added = append(added, id)
		}
	}
	if err := s.conversations.AddMembers(ctx, conversationID, added); err != nil {
		return nil, err
	}
	return added, nil
}

// Kick removes a non-owner member, owner-only.
func (s *MembershipService) Kick(ctx context.Context, actorID, conversationID, targetID uint) error {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.IsGroupOrChannel() {
		return chaterr.ErrNotGroupOrChannel
	}
	if err := s.requireOwner(ctx, conversationID, actorID); err != nil {
		return err
	}
	target, err := s.conversations.GetMember(ctx, conversationID, targetID)
	if err != nil {
		return err
	}
	if target.IsOwner {
		return chaterr.ErrCannotKickOwner
	}
	if err := s.conversations.RemoveMember(ctx, conversationID, targetID); err != nil {
		return err
	}
	s.log.Info("kicked member", zap.Uint("conversation_id", conversationID), zap.Uint("member_id", targetID))
	return nil
}

// Leave removes the member's own membership. Owners cannot leave;
// ownership is never auto-transferred.
func (s *MembershipService) Leave(ctx context.Context, memberID, conversationID uint) error {
	if _, err := s.conversations.GetByID(ctx, conversationID); err != nil {
		return err
	}
	member, err := s.conversations.GetMember(ctx, conversationID, memberID)
	if err != nil {
		if chaterr.Is(err, chaterr.ErrMemberNotFound) {
			return chaterr.ErrNotMember
		}
		return err
	}
	if member.IsOwner {
		return chaterr.ErrOwnerCannotLeave
	}
	return s.conversations.RemoveMember(ctx, conversationID, memberID)
}

// Delete cascades the conversation and everything under it, owner-only.
func (s *MembershipService) Delete(ctx context.Context, actorID, conversationID uint) error {
	if _, err := s.conversations.GetByID(ctx, conversationID); err != nil {
		return err
	}
	if err := s.requireOwner(ctx, conversationID, actorID); err != nil {
		return err
	}
	if err := s.conversations.Delete(ctx, conversationID); err != nil {
		return err
	}
	s.log.Info("deleted conversation", zap.Uint("conversation_id", conversationID))
	return nil
}

// Rename changes the display name. Any member may rename a GROUP; a
// CHANNEL is owner-only; a PRIVATE conversation has no name.
func (s *MembershipService) Rename(ctx context.Context, actorID, conversationID uint, name string) (*models.Conversation, error) {
	if err := s.requireManageRights(ctx, actorID, conversationID); err != nil {
		return nil, err
	}
	if err := s.conversations.UpdateName(ctx, conversationID, name); err != nil {
		return nil, err
	}
	return s.conversations.GetByID(ctx, conversationID)
}

// SetCoverImage stores the already-uploaded cover address, with the
// same role rules as Rename.
func (s *MembershipService) SetCoverImage(ctx context.Context, actorID, conversationID uint, url string) (*models.Conversation, error) {
	if err := s.requireManageRights(ctx, actorID, conversationID); err != nil {
		return nil, err
	}
	if err := s.conversations.UpdateCoverImage(ctx, conversationID, url); err != nil {
		return nil, err
	}
	return s.conversations.GetByID(ctx, conversationID)
}

// IsMember is the membership check used by the gateway and by REST
// callers outside it.
func (s *MembershipService) IsMember(ctx context.Context, memberID, conversationID uint) (bool, error) {
	_, err := s.conversations.GetMember(ctx, conversationID, memberID)
	if chaterr.Is(err, chaterr.ErrMemberNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *MembershipService) Members(ctx context.Context, conversationID uint) ([]models.Membership, error) {
	if _, err := s.conversations.GetByID(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.conversations.Members(ctx, conversationID)
}

// ListConversations assembles the member's conversation list with the
// latest message preview and unread count per conversation.
func (s *MembershipService) ListConversations(ctx context.Context, memberID uint) ([]ConversationSummary, error) {
	convs, err := s.conversations.ListForMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(convs))
	for _, conv := range convs {
		ids = append(ids, conv.ID)
	}
	latest, err := s.messages.LatestPerConversation(ctx, ids)
	if err != nil {
		return nil, err
	}
	unread, err := s.delivery.UnreadCounts(ctx, memberID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary := ConversationSummary{Conversation: conv, UnreadCount: unread[conv.ID]}
		if msg, ok := latest[conv.ID]; ok {
			m := msg
			summary.LastMessage = &m
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *MembershipService) requireOwner(ctx context.Context, conversationID, memberID uint) error {
	member, err := s.conversations.GetMember(ctx, conversationID, memberID)
	if err != nil {
		if chaterr.Is(err, chaterr.ErrMemberNotFound) {
			return chaterr.ErrNotOwner
		}
		return err
	}
	if !member.IsOwner {
		return chaterr.ErrNotOwner
	}
	return nil
}

func (s *MembershipService) requireManageRights(ctx context.Context, actorID, conversationID uint) error {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.IsGroupOrChannel() {
		return chaterr.ErrNotGroupOrChannel
	}
	member, err := s.conversations.GetMember(ctx, conversationID, actorID)
	if err != nil {
		if chaterr.Is(err, chaterr.ErrMemberNotFound) {
			return chaterr.ErrNotMember
		}
		return err
	}
	if conv.Kind == models.ConversationChannel && !member.IsOwner {
		return chaterr.ErrNotOwner
	}
	return nil
}

// dedupeMembers collapses duplicate ids and drops exclude (pass 0 to
// keep everything).
func dedupeMembers(ids []uint, exclude uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == exclude || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
