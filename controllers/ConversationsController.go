package controllers

import (
	"net/http"
	"strconv"

	"github.com/Instant-Chat-App/InstantChat-Server/middlewares"
	"github.com/Instant-Chat-App/InstantChat-Server/realtime"
	"github.com/Instant-Chat-App/InstantChat-Server/services"
	"github.com/Instant-Chat-App/InstantChat-Server/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ConversationsController exposes the membership authority over REST.
// Mutations publish the same broadcast events as the websocket path so
// subscribed sessions on every process see them.
type ConversationsController struct {
	members  *services.MembershipService
	delivery *services.DeliveryService
	hub      *realtime.Hub
	log      *zap.Logger
}

func NewConversationsController(
	members *services.MembershipService,
	delivery *services.DeliveryService,
	hub *realtime.Hub,
	log *zap.Logger,
) *ConversationsController {
	return &ConversationsController{members: members, delivery: delivery, hub: hub, log: log}
}

func (ctl *ConversationsController) GetConversations(c *gin.Context) {
	summaries, err := ctl.members.ListConversations(c.Request.Context(), middlewares.MemberID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, summaries, nil)
}

func (ctl *ConversationsController) CreatePrivate(c *gin.Context) {
	var req struct {
		MemberID uint `json:"member_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	conv, err := ctl.members.CreatePrivate(c.Request.Context(), middlewares.MemberID(c), req.MemberID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, conv, nil)
}

func (ctl *ConversationsController) CreateGroup(c *gin.Context) {
	ctl.createShared(c, false)
}

func (ctl *ConversationsController) CreateChannel(c *gin.Context) {
	ctl.createShared(c, true)
}

func (ctl *ConversationsController) createShared(c *gin.Context, channel bool) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		MemberIDs   []uint `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ownerID := middlewares.MemberID(c)
	create := ctl.members.CreateGroup
	if channel {
		create = ctl.members.CreateChannel
	}
	conv, err := create(c.Request.Context(), ownerID, req.Name, req.MemberIDs, req.Description)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, conv, nil)
}

func (ctl *ConversationsController) GetMembers(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}
	members, err := ctl.members.Members(c.Request.Context(), conversationID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, members, nil)
}

func (ctl *ConversationsController) AddMembers(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}
	var req struct {
		MemberIDs []uint `json:"member_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	added, err := ctl.members.AddMembers(c.Request.Context(), middlewares.MemberID(c), conversationID, req.MemberIDs)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctl.publish(c, realtime.NewEvent(realtime.EventMemberAdded, conversationID, gin.H{
		"conversation_id": conversationID,
		"member_ids":      added,
	}))
	utils.RespondSuccess(c, gin.H{"member_ids": added}, nil)
}

func (ctl *ConversationsController) KickMember(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}
	targetID, ok := pathID(c, "member_id")
	if !ok {
		return
	}
	if err := ctl.members.Kick(c.Request.Context(), middlewares.MemberID(c), conversationID, targetID); err != nil {
		utils.RespondError(c, err)
		return
	}
	ctl.publish(c, realtime.NewEvent(realtime.EventMemberRemoved, conversationID, gin.H{
		"conversation_id": conversationID,
		"member_id":       targetID,
	}))
	utils.RespondSuccess(c, nil, nil)
}

func (ctl *ConversationsController) LeaveConversation(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}
	memberID := middlewares.MemberID(c)
	if err := ctl.members.Leave(c.Request.Context(), memberID, conversationID); err != nil {
		utils.RespondError(c, err)
		return
	}
	ctl.publish(c, realtime.NewEvent(realtime.EventMemberRemoved, conversationID, gin.H{
		"conversation_id": conversationID,
		"member_id":       memberID,
	}))
	utils.RespondSuccess(c, nil, nil)
}

func (ctl *ConversationsController) DeleteConversation(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}
	if err := ctl.members.Delete(c.Request.Context(), middlewares.MemberID(c), conversationID); err != nil {
		utils.RespondError(c, err)
		return
	}
	ctl.publish(c, realtime.NewEvent(realtime.EventConversationDeleted, conversationID, gin.H{
		"conversation_id": conversationID,
	}))
	utils.RespondSuccess(c, nil, nil)
}

func (ctl *ConversationsController) Rename(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	conv, err := ctl.members.Rename(c.Request.Context(), middlewares.MemberID(c), conversationID, req.Name)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctl.publish(c, realtime.NewEvent(realtime.EventConversationRenamed, conv.ID, conv))
	utils.RespondSuccess(c, conv, nil)
}

func (ctl *ConversationsController) SetCoverImage(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	conv, err := ctl.members.SetCoverImage(c.Request.Context(), middlewares.MemberID(c), conversationID, req.URL)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctl.publish(c, realtime.NewEvent(realtime.EventCoverChanged, conv.ID, conv))
	utils.RespondSuccess(c, conv, nil)
}

func (ctl *ConversationsController) UnreadCount(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}
	count, err := ctl.delivery.UnreadCount(c.Request.Context(), middlewares.MemberID(c), conversationID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, gin.H{"unread": count}, nil)
}

func (ctl *ConversationsController) publish(c *gin.Context, ev realtime.Event) {
	if err := ctl.hub.Publish(c.Request.Context(), ev); err != nil {
		ctl.log.Error("failed to publish event", zap.String("event_type", string(ev.Type)), zap.Error(err))
	}
}

// pathID parses a numeric path parameter, answering 400 itself when the
// value is garbage.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}
