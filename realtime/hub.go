package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub fans events out to the connections of this process. Rooms are
// keyed by conversation id; cross-process delivery happens by every
// process's hub consuming the same Bus subscription.
type Hub struct {
	bus Bus
	log *zap.Logger

	mu    sync.Mutex
	rooms map[uint]map[*Client]struct{}
}

func NewHub(bus Bus, log *zap.Logger) *Hub {
	return &Hub{
		bus:   bus,
		log:   log.With(zap.String("module", "hub")),
		rooms: make(map[uint]map[*Client]struct{}),
	}
}

// Run consumes the bus subscription until ctx is cancelled or the bus
// closes. Start it once per process.
func (h *Hub) Run(ctx context.Context) error {
	events, err := h.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	h.log.Info("hub started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			h.dispatch(ev)
		}
	}
}

// Publish hands a mutation's broadcast to the coordination channel. The
// local fan-out happens when the event comes back on the subscription,
// so one instance and many instances behave identically.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	return h.bus.Publish(ctx, ev)
}

// Join subscribes the client to each conversation room. Membership is
// checked by the gateway before this is called.
func (h *Hub) Join(c *Client, conversationIDs []uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range conversationIDs {
		room, ok := h.rooms[id]
		if !ok {
			room = make(map[*Client]struct{})
			h.rooms[id] = room
		}
		room[c] = struct{}{}
	}
}

// Leave removes the client from one room, e.g. after it leaves the
// conversation.
func (h *Hub) Leave(c *Client, conversationID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.evict(c, conversationID)
}

// Drop removes a disconnected client from every room. In-flight
// mutations are unaffected; the store completes what it accepted.
func (h *Hub) Drop(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.rooms {
		h.evict(c, id)
	}
}

func (h *Hub) evict(c *Client, conversationID uint) {
	room, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
}

func (h *Hub) dispatch(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("failed to marshal event", zap.Error(err))
		return
	}

	// Sends stay under the lock: a client's channel is only closed after
	// Drop has removed it from every room, so no send can hit a closed
	// channel. The sends never block, they drop instead.
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[ev.ConversationID] {
		select {
		case c.send <- data:
		default:
			h.log.Warn("skipping slow client",
				zap.Uint("member_id", c.memberID),
				zap.String("event_id", ev.ID))
		}
	}
}
