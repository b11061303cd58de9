package realtime

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Instant-Chat-App/InstantChat-Server/auth"
	"github.com/Instant-Chat-App/InstantChat-Server/models"
	"github.com/Instant-Chat-App/InstantChat-Server/repositories"
	"github.com/Instant-Chat-App/InstantChat-Server/services"
	"github.com/glebarez/sqlite"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// gatewayEnv runs a full gateway over the in-memory store and bus,
// reachable through a real websocket server.
type gatewayEnv struct {
	db         *gorm.DB
	membership *services.MembershipService
	verifier   *auth.JWTVerifier
	srv        *httptest.Server
}

type fixedUploader struct{}

func (fixedUploader) Store(context.Context, []byte, string) (string, error) {
	return "https://cdn/stored.png", nil
}

func newGatewayEnv(t *testing.T) *gatewayEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(db))

	log := zap.NewNop()
	conversationRepo := repositories.NewConversationRepository(db, log)
	messageRepo := repositories.NewMessageRepository(db, log)
	reactionRepo := repositories.NewReactionRepository(db, log)
	deliveryRepo := repositories.NewDeliveryRepository(db, log)

	delivery := services.NewDeliveryService(deliveryRepo, conversationRepo, log)
	membership := services.NewMembershipService(conversationRepo, messageRepo, deliveryRepo, log)
	messages := services.NewMessageService(messageRepo, reactionRepo, conversationRepo, delivery, log)
	verifier := auth.NewJWTVerifier("test-secret")

	bus := NewMemoryBus()
	hub := NewHub(bus, log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	gw := NewGateway(hub, membership, messages, delivery, fixedUploader{}, verifier, log)
	srv := httptest.NewServer(http.HandlerFunc(gw.HandleConnection))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		bus.Close()
	})
	return &gatewayEnv{db: db, membership: membership, verifier: verifier, srv: srv}
}

func (e *gatewayEnv) dial(t *testing.T, memberID uint) *websocket.Conn {
	t.Helper()
	token, err := e.verifier.Issue(memberID, time.Hour)
	require.NoError(t, err)
	conn := e.dialToken(t, token)
	return conn
}

func (e *gatewayEnv) dialToken(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (e *gatewayEnv) createGroup(t *testing.T, ownerID uint, memberIDs ...uint) *models.Conversation {
	t.Helper()
	conv, err := e.membership.CreateGroup(context.Background(), ownerID, "test group", memberIDs, "")
	require.NoError(t, err)
	return conv
}

// wsFrame decodes both ack frames and broadcast events; each carries a
// type discriminator.
type wsFrame struct {
	Type    string          `json:"type"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Payload json.RawMessage `json:"payload"`
}

func sendFrame(t *testing.T, conn *websocket.Conn, frameType string, data interface{}) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	raw, err := json.Marshal(map[string]interface{}{"type": frameType, "data": json.RawMessage(payload)})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var f wsFrame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

func requireNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, raw, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", raw)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	require.True(t, netErr.Timeout())
}

func Test_Handshake_Rejects_Bad_Token_With_Close_Frame(t *testing.T) {
	req := require.New(t)
	env := newGatewayEnv(t)

	conn := env.dialToken(t, "not-a-token")
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.Error(err)
	req.True(websocket.IsCloseError(err, websocket.ClosePolicyViolation),
		"expected a policy-violation close frame, got %v", err)
}

func Test_Subscribe_Batch_Is_All_Or_Nothing(t *testing.T) {
	req := require.New(t)
	env := newGatewayEnv(t)

	mine := env.createGroup(t, 1, 2)
	other := env.createGroup(t, 3, 4)

	conn := env.dial(t, 1)
	sendFrame(t, conn, "subscribe", map[string]interface{}{
		"conversation_ids": []uint{mine.ID, other.ID},
	})
	f := readFrame(t, conn)
	req.Equal("joinError", f.Type)
	req.Equal("NOT_MEMBER", f.Code)
	var detail struct {
		ConversationID uint `json:"conversation_id"`
	}
	req.NoError(json.Unmarshal(f.Data, &detail))
	req.Equal(other.ID, detail.ConversationID)

	// The rejected batch joined nothing, not even the valid room: a
	// message sent before the clean re-subscribe never reaches conn.
	sender := env.dial(t, 2)
	sendFrame(t, sender, "subscribe", map[string]interface{}{"conversation_ids": []uint{mine.ID}})
	req.Equal("joinSuccess", readFrame(t, sender).Type)
	sendFrame(t, sender, "send", map[string]interface{}{
		"conversation_id": mine.ID,
		"content":         "before the join",
	})
	// Ack and broadcast for the sender, in whatever order.
	seen := map[string]bool{}
	seen[readFrame(t, sender).Type] = true
	seen[readFrame(t, sender).Type] = true
	req.True(seen["sendSuccess"] && seen[string(EventNewMessage)], "saw %v", seen)

	sendFrame(t, conn, "subscribe", map[string]interface{}{"conversation_ids": []uint{mine.ID}})
	req.Equal("joinSuccess", readFrame(t, conn).Type)
	sendFrame(t, sender, "send", map[string]interface{}{
		"conversation_id": mine.ID,
		"content":         "after the join",
	})

	// The first frame conn sees is the second message; the first one
	// was dispatched while conn held no rooms.
	got := readFrame(t, conn)
	req.Equal(string(EventNewMessage), got.Type)
	var payload models.Message
	req.NoError(json.Unmarshal(got.Payload, &payload))
	req.Equal("after the join", payload.Content)
}

func Test_Send_Acks_And_Broadcasts(t *testing.T) {
	req := require.New(t)
	env := newGatewayEnv(t)
	conv := env.createGroup(t, 1, 2)

	conn := env.dial(t, 1)
	sendFrame(t, conn, "subscribe", map[string]interface{}{"conversation_ids": []uint{conv.ID}})
	req.Equal("joinSuccess", readFrame(t, conn).Type)

	sendFrame(t, conn, "send", map[string]interface{}{
		"conversation_id": conv.ID,
		"content":         "hello",
	})
	// The originating connection gets both the ack and, being
	// subscribed, the broadcast; their order is not fixed.
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		seen[readFrame(t, conn).Type] = true
	}
	req.True(seen["sendSuccess"], "missing ack, saw %v", seen)
	req.True(seen[string(EventNewMessage)], "missing broadcast, saw %v", seen)

	// A sender failure acks an error and broadcasts nothing.
	sendFrame(t, conn, "send", map[string]interface{}{
		"conversation_id": conv.ID,
		"content":         "   ",
	})
	f := readFrame(t, conn)
	req.Equal("sendError", f.Type)
	req.Equal("EMPTY_MESSAGE", f.Code)
	requireNoFrame(t, conn)
}

func Test_SetCover_Requires_Url_Or_Data(t *testing.T) {
	req := require.New(t)
	env := newGatewayEnv(t)
	conv := env.createGroup(t, 1, 2)

	conn := env.dial(t, 1)
	sendFrame(t, conn, "setCoverImage", map[string]interface{}{
		"conversation_id": conv.ID,
	})
	f := readFrame(t, conn)
	req.Equal("setCoverError", f.Type)
	req.Equal("BAD_FRAME", f.Code)

	// The cover stayed untouched.
	var stored models.Conversation
	req.NoError(env.db.First(&stored, "conversation_id = ?", conv.ID).Error)
	req.Nil(stored.CoverImage)

	// Raw bytes go through the uploader and only the address lands.
	sendFrame(t, conn, "setCoverImage", map[string]interface{}{
		"conversation_id": conv.ID,
		"data":            "aGVsbG8=",
		"mime_type":       "image/png",
	})
	req.Equal("setCoverSuccess", readFrame(t, conn).Type)
	req.NoError(env.db.First(&stored, "conversation_id = ?", conv.ID).Error)
	req.NotNil(stored.CoverImage)
	req.Equal("https://cdn/stored.png", *stored.CoverImage)
}
