package controllers

import (
	"net/http"

	"github.com/Instant-Chat-App/InstantChat-Server/middlewares"
	"github.com/Instant-Chat-App/InstantChat-Server/models"
	"github.com/Instant-Chat-App/InstantChat-Server/realtime"
	"github.com/Instant-Chat-App/InstantChat-Server/services"
	"github.com/Instant-Chat-App/InstantChat-Server/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessageController exposes the message lifecycle over REST for thin
// clients; the websocket path goes through the gateway instead.
type MessageController struct {
	messages *services.MessageService
	hub      *realtime.Hub
	log      *zap.Logger
}

func NewMessageController(messages *services.MessageService, hub *realtime.Hub, log *zap.Logger) *MessageController {
	return &MessageController{messages: messages, hub: hub, log: log}
}

// GetMessages returns the timestamp-ordered history and marks the
// caller's unread rows READ, exactly like a client fetch over the
// socket.
func (ctl *MessageController) GetMessages(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}
	msgs, err := ctl.messages.ListConversationMessages(c.Request.Context(), middlewares.MemberID(c), conversationID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, msgs, nil)
}

func (ctl *MessageController) SendMessage(c *gin.Context) {
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}
	var req struct {
		Content     string                     `json:"content"`
		Attachments []services.AttachmentInput `json:"attachments"`
		ReplyTo     *uint                      `json:"reply_to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	msg, err := ctl.messages.Send(c.Request.Context(), middlewares.MemberID(c), conversationID, req.Content, req.Attachments, req.ReplyTo)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctl.publish(c, realtime.NewEvent(realtime.EventNewMessage, msg.ConversationID, msg))
	utils.RespondSuccess(c, msg, nil)
}

func (ctl *MessageController) EditMessage(c *gin.Context) {
	messageID, ok := pathID(c, "message_id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	msg, err := ctl.messages.Edit(c.Request.Context(), middlewares.MemberID(c), messageID, req.Content)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctl.publish(c, realtime.NewEvent(realtime.EventMessageEdited, msg.ConversationID, msg))
	utils.RespondSuccess(c, msg, nil)
}

func (ctl *MessageController) DeleteMessage(c *gin.Context) {
	messageID, ok := pathID(c, "message_id")
	if !ok {
		return
	}
	msg, err := ctl.messages.Delete(c.Request.Context(), middlewares.MemberID(c), messageID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctl.publish(c, realtime.NewEvent(realtime.EventMessageDeleted, msg.ConversationID, gin.H{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
	}))
	utils.RespondSuccess(c, nil, nil)
}

func (ctl *MessageController) React(c *gin.Context) {
	messageID, ok := pathID(c, "message_id")
	if !ok {
		return
	}
	var req struct {
		Kind models.ReactionKind `json:"kind" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	reactions, err := ctl.messages.React(c.Request.Context(), middlewares.MemberID(c), messageID, req.Kind)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctl.publishReactions(c, messageID, reactions)
	utils.RespondSuccess(c, reactions, nil)
}

func (ctl *MessageController) RemoveReaction(c *gin.Context) {
	messageID, ok := pathID(c, "message_id")
	if !ok {
		return
	}
	reactions, err := ctl.messages.RemoveReaction(c.Request.Context(), middlewares.MemberID(c), messageID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ctl.publishReactions(c, messageID, reactions)
	utils.RespondSuccess(c, reactions, nil)
}

// GetDeliveryStatuses returns the read receipts of one message.
func (ctl *MessageController) GetDeliveryStatuses(c *gin.Context) {
	messageID, ok := pathID(c, "message_id")
	if !ok {
		return
	}
	statuses, err := ctl.messages.DeliveryStatuses(c.Request.Context(), middlewares.MemberID(c), messageID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondSuccess(c, statuses, nil)
}

func (ctl *MessageController) publishReactions(c *gin.Context, messageID uint, reactions []models.Reaction) {
	msg, err := ctl.messages.Get(c.Request.Context(), messageID)
	if err != nil {
		ctl.log.Error("failed to load message for broadcast", zap.Error(err))
		return
	}
	ctl.publish(c, realtime.NewEvent(realtime.EventReactionChanged, msg.ConversationID, gin.H{
		"message_id": messageID,
		"reactions":  reactions,
	}))
}

func (ctl *MessageController) publish(c *gin.Context, ev realtime.Event) {
	if err := ctl.hub.Publish(c.Request.Context(), ev); err != nil {
		ctl.log.Error("failed to publish event", zap.String("event_type", string(ev.Type)), zap.Error(err))
	}
}
