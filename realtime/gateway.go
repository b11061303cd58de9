package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Instant-Chat-App/InstantChat-Server/auth"
	chaterr "github.com/Instant-Chat-App/InstantChat-Server/errors"
	"github.com/Instant-Chat-App/InstantChat-Server/models"
	"github.com/Instant-Chat-App/InstantChat-Server/services"
	"github.com/Instant-Chat-App/InstantChat-Server/upload"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Gateway accepts websocket connections, binds each to an
// authenticated member and routes its event frames into the services.
// Every mutation it performs is broadcast through the hub's bus so all
// processes serving the conversation deliver it.
type Gateway struct {
	hub      *Hub
	members  *services.MembershipService
	messages *services.MessageService
	delivery *services.DeliveryService
	uploader upload.Uploader
	verifier auth.Verifier
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewGateway(
	hub *Hub,
	members *services.MembershipService,
	messages *services.MessageService,
	delivery *services.DeliveryService,
	uploader upload.Uploader,
	verifier auth.Verifier,
	log *zap.Logger,
) *Gateway {
	return &Gateway{
		hub:      hub,
		members:  members,
		messages: messages,
		delivery: delivery,
		uploader: uploader,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.With(zap.String("module", "gateway")),
	}
}

// HandleConnection upgrades the request and authenticates the
// handshake. An invalid token closes the connection with an
// authentication error, never a silent drop.
func (g *Gateway) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	memberID, err := g.verifier.Verify(token)
	if err != nil {
		g.log.Warn("handshake rejected", zap.Error(err))
		deadline := time.Now().Add(writeWait)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
			deadline)
		conn.Close()
		return
	}

	client := newClient(g, conn, memberID)
	client.log.Info("client connected")
	go client.writePump()
	go client.readPump()
}

// frame is the envelope of every client->server event.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ack is the per-request acknowledgment sent back to the originating
// connection only.
type ack struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Code  string      `json:"code,omitempty"`
	Error string      `json:"error,omitempty"`
}

func (g *Gateway) dispatch(c *Client, raw []byte) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		c.reply(ack{Type: "error", Code: "BAD_FRAME", Error: "malformed frame"})
		return
	}

	ctx := context.Background()
	switch f.Type {
	case "subscribe":
		g.handleSubscribe(ctx, c, f.Data)
	case "send":
		g.handleSend(ctx, c, f.Data)
	case "markRead":
		g.handleMarkRead(ctx, c, f.Data)
	case "editMessage":
		g.handleEdit(ctx, c, f.Data)
	case "deleteMessage":
		g.handleDelete(ctx, c, f.Data)
	case "react":
		g.handleReact(ctx, c, f.Data)
	case "removeReaction":
		g.handleRemoveReaction(ctx, c, f.Data)
	case "addMember":
		g.handleAddMember(ctx, c, f.Data)
	case "kick":
		g.handleKick(ctx, c, f.Data)
	case "leave":
		g.handleLeave(ctx, c, f.Data)
	case "rename":
		g.handleRename(ctx, c, f.Data)
	case "setCoverImage":
		g.handleSetCover(ctx, c, f.Data)
	default:
		c.reply(ack{Type: "error", Code: "UNKNOWN_EVENT", Error: "unknown event type: " + f.Type})
	}
}

// handleSubscribe joins the client to a batch of conversation rooms.
// The batch is all-or-nothing: one failed membership check rejects the
// whole request, naming the offending conversation.
func (g *Gateway) handleSubscribe(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		ConversationIDs []uint `json:"conversation_ids"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(ack{Type: "joinError", Code: "BAD_FRAME", Error: "malformed frame"})
		return
	}
	for _, id := range req.ConversationIDs {
		ok, err := g.members.IsMember(ctx, c.memberID, id)
		if err != nil {
			g.ackError(c, "join", err)
			return
		}
		if !ok {
			c.reply(ack{
				Type:  "joinError",
				Code:  chaterr.Code(chaterr.ErrNotMember),
				Error: chaterr.ErrNotMember.Error(),
				Data:  map[string]interface{}{"conversation_id": id},
			})
			return
		}
	}
	g.hub.Join(c, req.ConversationIDs)
	c.reply(ack{Type: "joinSuccess", Data: map[string]interface{}{"conversation_ids": req.ConversationIDs}})
}

func (g *Gateway) handleSend(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		ConversationID uint                       `json:"conversation_id"`
		Content        string                     `json:"content"`
		Attachments    []services.AttachmentInput `json:"attachments"`
		ReplyTo        *uint                      `json:"reply_to"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(ack{Type: "sendError", Code: "BAD_FRAME", Error: "malformed frame"})
		return
	}
	msg, err := g.messages.Send(ctx, c.memberID, req.ConversationID, req.Content, req.Attachments, req.ReplyTo)
	if err != nil {
		g.ackError(c, "send", err)
		return
	}
	g.broadcast(ctx, c, NewEvent(EventNewMessage, msg.ConversationID, msg))
	c.reply(ack{Type: "sendSuccess", Data: map[string]interface{}{"message_id": msg.ID}})
}

func (g *Gateway) handleMarkRead(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		ConversationID uint `json:"conversation_id"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(ack{Type: "readError", Code: "BAD_FRAME", Error: "malformed frame"})
		return
	}
	updated, err := g.delivery.MarkRead(ctx, c.memberID, req.ConversationID)
	if err != nil {
		g.ackError(c, "read", err)
		return
	}
	c.reply(ack{Type: "readSuccess", Data: map[string]interface{}{
		"conversation_id": req.ConversationID,
		"updated":         updated,
	}})
}

func (g *Gateway) handleEdit(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		MessageID uint   `json:"message_id"`
		Content   string `json:"content"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(ack{Type: "editError", Code: "BAD_FRAME", Error: "malformed frame"})
		return
	}
	msg, err := g.messages.Edit(ctx, c.memberID, req.MessageID, req.Content)
	if err != nil {
		g.ackError(c, "edit", err)
		return
	}
	g.broadcast(ctx, c, NewEvent(EventMessageEdited, msg.ConversationID, msg))
	c.reply(ack{Type: "editSuccess", Data: map[string]interface{}{"message_id": msg.ID}})
}

func (g *Gateway) handleDelete(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		MessageID uint `json:"message_id"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(ack{Type: "deleteError", Code: "BAD_FRAME", Error: "malformed frame"})
		return
	}
	msg, err := g.messages.Delete(ctx, c.memberID, req.MessageID)
	if err != nil {
		g.ackError(c, "delete", err)
		return
	}
	g.broadcast(ctx, c, NewEvent(EventMessageDeleted, msg.ConversationID, map[string]interface{}{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
	}))
	c.reply(ack{Type: "deleteSuccess", Data: map[string]interface{}{"message_id": msg.ID}})
}

func (g *Gateway) handleReact(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		MessageID uint                `json:"message_id"`
		Kind      models.ReactionKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(ack{Type: "reactError", Code: "BAD_FRAME", Error: "malformed frame"})
		return
	}
	reactions, err := g.messages.React(ctx, c.memberID, req.MessageID, req.Kind)
	if err != nil {
		g.ackError(c, "react", err)
		return
	}
	g.broadcastReactions(ctx, c, req.MessageID, reactions)
	c.reply(ack{Type: "reactSuccess", Data: map[string]interface{}{"message_id": req.MessageID}})
}

func (g *Gateway) handleRemoveReaction(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		MessageID uint `json:"message_id"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(ack{Type: "removeReactionError", Code: "BAD_FRAME", Error: "malformed frame"})
		return
	}
	reactions, err := g.messages.RemoveReaction(ctx, c.memberID, req.MessageID)
	if err != nil {
		g.ackError(c, "removeReaction", err)
		return
	}
	g.broadcastReactions(ctx, c, req.MessageID, reactions)
	c.reply(ack{Type: "removeReactionSuccess", Data: map[string]interface{}{"message_id": req.MessageID}})
}

func (g *Gateway) handleAddMember(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		ConversationID uint   `json:"conversation_id"`
		MemberIDs      []uint `json:"member_ids"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(ack{Type: "addMemberError", Code: "BAD_FRAME", Error: "malformed frame"})
		return
	}
	added, err := g.members.AddMembers(ctx, c.memberID, req.ConversationID, req.MemberIDs)
	if err != nil {
		g.ackError(c, "addMember", err)
		return
	}
	g.broadcast(ctx, c, NewEvent(EventMemberAdded, req.ConversationID, map[string]interface{}{
		"conversation_id": req.ConversationID,
		"member_ids":      added,
	}))
	c.reply(ack{Type: "addMemberSuccess", Data: map[string]interface{}{"member_ids": added}})
}

func (g *Gateway) handleKick(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		ConversationID uint `json:"conversation_id"`
		MemberID       uint `json:"member_id"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(ack{Type: "kickError", Code: "BAD_FRAME", Error: "malformed frame"})
		return
	}
	if err := g.members.Kick(ctx, c.memberID, req.ConversationID, req.MemberID); err != nil {
		g.ackError(c, "kick", err)
		return
	}
	g.broadcast(ctx, c, NewEvent(EventMemberRemoved, req.ConversationID, map[string]interface{}{
		"conversation_id": req.ConversationID,
		"member_id":       req.MemberID,
	}))
	c.reply(ack{Type: "kickSuccess", Data: map[string]interface{}{"member_id": req.MemberID}})
}

func (g *Gateway) handleLeave(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		ConversationID uint `json:"conversation_id"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(ack{Type: "leaveError", Code: "BAD_FRAME", Error: "malformed frame"})
		return
	}
	if err := g.members.Leave(ctx, c.memberID, req.ConversationID); err != nil {
		g.ackError(c, "leave", err)
		return
	}
	g.hub.Leave(c, req.ConversationID)
	g.broadcast(ctx, c, NewEvent(EventMemberRemoved, req.ConversationID, map[string]interface{}{
		"conversation_id": req.ConversationID,
		"member_id":       c.memberID,
	}))
	c.reply(ack{Type: "leaveSuccess", Data: map[string]interface{}{"conversation_id": req.ConversationID}})
}

func (g *Gateway) handleRename(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		ConversationID uint   `json:"conversation_id"`
		Name           string `json:"name"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(ack{Type: "renameError", Code: "BAD_FRAME", Error: "malformed frame"})
		return
	}
	conv, err := g.members.Rename(ctx, c.memberID, req.ConversationID, req.Name)
	if err != nil {
		g.ackError(c, "rename", err)
		return
	}
	g.broadcast(ctx, c, NewEvent(EventConversationRenamed, conv.ID, conv))
	c.reply(ack{Type: "renameSuccess", Data: map[string]interface{}{"conversation_id": conv.ID}})
}

// handleSetCover accepts either an already-uploaded URL or raw base64
// bytes; bytes are run through the uploader collaborator and only the
// resulting address is stored.
func (g *Gateway) handleSetCover(ctx context.Context, c *Client, data json.RawMessage) {
	var req struct {
		ConversationID uint   `json:"conversation_id"`
		URL            string `json:"url"`
		Base64Data     string `json:"data"`
		MimeType       string `json:"mime_type"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(ack{Type: "setCoverError", Code: "BAD_FRAME", Error: "malformed frame"})
		return
	}
	if req.URL == "" && req.Base64Data == "" {
		c.reply(ack{Type: "setCoverError", Code: "BAD_FRAME", Error: "url or data required"})
		return
	}
	url := req.URL
	if url == "" && req.Base64Data != "" {
		raw, err := base64.StdEncoding.DecodeString(req.Base64Data)
		if err != nil {
			c.reply(ack{Type: "setCoverError", Code: "BAD_FRAME", Error: "invalid base64 data"})
			return
		}
		url, err = g.uploader.Store(ctx, raw, req.MimeType)
		if err != nil {
			g.ackError(c, "setCover", err)
			return
		}
	}
	conv, err := g.members.SetCoverImage(ctx, c.memberID, req.ConversationID, url)
	if err != nil {
		g.ackError(c, "setCover", err)
		return
	}
	g.broadcast(ctx, c, NewEvent(EventCoverChanged, conv.ID, conv))
	c.reply(ack{Type: "setCoverSuccess", Data: map[string]interface{}{"conversation_id": conv.ID}})
}

func (g *Gateway) broadcastReactions(ctx context.Context, c *Client, messageID uint, reactions []models.Reaction) {
	msg, err := g.messages.Get(ctx, messageID)
	if err != nil {
		g.log.Error("failed to load message for broadcast", zap.Error(err))
		return
	}
	g.broadcast(ctx, c, NewEvent(EventReactionChanged, msg.ConversationID, map[string]interface{}{
		"message_id": messageID,
		"reactions":  reactions,
	}))
}

func (g *Gateway) broadcast(ctx context.Context, c *Client, ev Event) {
	if err := g.hub.Publish(ctx, ev); err != nil {
		// The mutation is already durable; subscribers catch up on the
		// next history fetch.
		g.log.Error("failed to publish event",
			zap.String("event_id", ev.ID),
			zap.String("event_type", string(ev.Type)),
			zap.Error(err))
	}
}

// ackError maps a typed failure onto the op's error acknowledgment.
// Unexpected faults are logged and masked.
func (g *Gateway) ackError(c *Client, op string, err error) {
	if !chaterr.Expected(err) {
		g.log.Error("internal error", zap.String("op", op), zap.Error(err))
		c.reply(ack{Type: op + "Error", Code: "INTERNAL", Error: "internal error"})
		return
	}
	c.reply(ack{Type: op + "Error", Code: chaterr.Code(err), Error: err.Error()})
}
