package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"visitor_backend/platform/httpkit"
	"visitor_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const clientBuffer = 32

// Message is one event on its way to a client.
type Message struct {
	Event   string
	Payload json.RawMessage
}

// Transport delivers events to rooms.
type Transport interface {
	EmitToRoom(ctx context.Context, room, event string, payload any) error
	EmitBroadcast(ctx context.Context, tenantID uuid.UUID, event string, payload any) error
}

type client struct {
	rooms  []string
	events chan Message
}

// Hub keeps the SSE clients of this instance, grouped by room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
	log   *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		log:   log,
	}
}

func (h *Hub) join(rooms ...string) *client {
	c := &client{rooms: rooms, events: make(chan Message, clientBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range rooms {
		members := h.rooms[room]
		if members == nil {
			members = make(map[*client]struct{})
			h.rooms[room] = members
		}
		members[c] = struct{}{}
	}
	return c
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range c.rooms {
		delete(h.rooms[room], c)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.events)
}

// EmitToRoom delivers to the clients of this instance. A client with a full buffer misses the event.
func (h *Hub) EmitToRoom(_ context.Context, room, event string, payload any) error {
	data, err := encodePayload(payload)
	if err != nil {
		return err
	}
	h.deliver(room, Message{Event: event, Payload: data})
	return nil
}

func (h *Hub) EmitBroadcast(ctx context.Context, tenantID uuid.UUID, event string, payload any) error {
	return h.EmitToRoom(ctx, TenantRoom(tenantID), event, payload)
}

func (h *Hub) deliver(room string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		select {
		case c.events <- msg:
		default:
			h.log.Warn("realtime client buffer full; event dropped", "room", room, "event", msg.Event)
		}
	}
}

// Clients reports how many clients listen on a room.
func (h *Hub) Clients(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Handler streams the caller's account room and tenant room as server-sent events.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := httpkit.MustGetIdentity(c)
		if identity == nil {
			return
		}
		accountID := identity.UserID()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)

		rooms := []string{AccountRoom(accountID)}
		if tenantID := identity.TenantID(); tenantID != nil {
			rooms = append(rooms, TenantRoom(*tenantID))
		}
		cl := h.join(rooms...)
		defer h.leave(cl)

		c.SSEvent("connected", gin.H{"accountId": accountID})
		c.Writer.Flush()
		h.log.Debug("realtime client connected", "accountId", accountID)

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				h.log.Debug("realtime client disconnected", "accountId", accountID)
				return
			case msg, ok := <-cl.events:
				if !ok {
					return
				}
				c.SSEvent(msg.Event, string(msg.Payload))
				c.Writer.Flush()
			}
		}
	}
}

func encodePayload(payload any) (json.RawMessage, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(payload)
}
