package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // base64 cover uploads pass through here
)

// Client is one authenticated websocket connection.
type Client struct {
	gateway  *Gateway
	conn     *websocket.Conn
	send     chan []byte
	memberID uint
	log      *zap.Logger
}

func newClient(g *Gateway, conn *websocket.Conn, memberID uint) *Client {
	return &Client{
		gateway:  g,
		conn:     conn,
		send:     make(chan []byte, 64),
		memberID: memberID,
		log:      g.log.With(zap.Uint("member_id", memberID)),
	}
}

// MemberID returns the authenticated identity bound at handshake.
func (c *Client) MemberID() uint { return c.memberID }

func (c *Client) readPump() {
	defer func() {
		c.gateway.hub.Drop(c)
		close(c.send)
		c.conn.Close()
		c.log.Info("client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read error", zap.Error(err))
			}
			return
		}
		c.gateway.dispatch(c, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply queues an acknowledgment frame for this connection only.
func (c *Client) reply(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error("failed to marshal ack", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn("dropping ack for slow client")
	}
}
