package server

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chessarena/live-server/pkg/events"
	"github.com/chessarena/live-server/pkg/messages"
	"github.com/chessarena/live-server/pkg/room"
)

// Connection wraps one client websocket. Outbound traffic goes through
// a buffered send channel so the hub and room broadcasts never block on
// a slow socket; room messages are forwarded by a per-subscription
// goroutine after the room lock has been released.
type Connection struct {
	ID      uuid.UUID
	ws      *websocket.Conn // The underlying Websocket connection
	hub     *Hub
	send    chan []byte // Buffered channel of outbound messages.
	writeMu sync.Mutex  // Mutex to protect concurrent writes to ws.

	// sendMu orders SendJSON against closeSend. Room forwarding
	// goroutines keep draining their backlog after the hub has let go
	// of the connection, so only the connection may close its channel.
	sendMu sync.Mutex
	closed bool

	subMu    sync.Mutex
	roomSubs map[string]*room.Room // rooms this connection listens to

	publisher *events.Publisher
	logger    *zap.Logger
}

// NewConnection wraps an upgraded websocket.
func NewConnection(
	ws *websocket.Conn,
	hub *Hub,
	publisher *events.Publisher,
	logger *zap.Logger,
) *Connection {
	return &Connection{
		ID:        uuid.New(),
		ws:        ws,
		hub:       hub,
		send:      make(chan []byte, 256), // buffered for outgoing messages
		roomSubs:  make(map[string]*room.Room),
		publisher: publisher,
		logger:    logger,
	}
}

// SubscribeRoom attaches this connection to a room's broadcast channel
// and forwards its messages until the subscription is dropped.
func (c *Connection) SubscribeRoom(r *room.Room) {
	c.subMu.Lock()
	if _, ok := c.roomSubs[r.ID]; ok {
		c.subMu.Unlock()
		return
	}
	c.roomSubs[r.ID] = r
	c.subMu.Unlock()

	ch := r.Subscribe(c.ID)
	go func() {
		for msg := range ch {
			c.SendJSON(msg)
		}
	}()
}

// UnsubscribeRoom detaches this connection from a room's broadcasts.
func (c *Connection) UnsubscribeRoom(roomID string) {
	c.subMu.Lock()
	r, ok := c.roomSubs[roomID]
	delete(c.roomSubs, roomID)
	c.subMu.Unlock()

	if ok {
		r.Unsubscribe(c.ID)
	}
}

func (c *Connection) unsubscribeAll() {
	c.subMu.Lock()
	subs := make([]*room.Room, 0, len(c.roomSubs))
	for _, r := range c.roomSubs {
		subs = append(subs, r)
	}
	c.roomSubs = make(map[string]*room.Room)
	c.subMu.Unlock()

	for _, r := range subs {
		r.Unsubscribe(c.ID)
	}
}

// ReadPump handles inbound messages from the client
func (c *Connection) ReadPump() {
	defer func() {
		c.unsubscribeAll()

		// Let the session layer reclaim whatever this connection held.
		c.publisher.Publish(events.Event{
			Type: events.EventConnectionClosed,
			Payload: map[string]string{
				"connection_id": c.ID.String(),
			},
		})

		// When the hub has already shut down nobody is draining the
		// unregister channel; do not hang the teardown on it.
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
			c.closeSend()
		}
		c.ws.Close()
	}()

	for {
		msgType, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("read error", zap.Error(err))
			}
			break
		}

		// We only handle text
		if msgType == websocket.TextMessage {
			var inbound messages.InboundMessage
			if err := json.Unmarshal(msg, &inbound); err == nil {
				c.hub.inbound <- InboundHubMessage{
					Conn:    c,
					Message: inbound,
				}
			} else {
				c.logger.Error("failed to parse inbound JSON", zap.Error(err))
			}
		}
	}
}

// WritePump handles outbound messages to the client
func (c *Connection) WritePump() {
	defer func() {
		c.ws.Close()
	}()

	for {
		message, ok := <-c.send
		if !ok {
			// Channel closed
			c.logger.Info(
				"send channel closed for connection",
				zap.String("connection_id", c.ID.String()),
			)
			return
		}
		c.writeMu.Lock()
		err := c.ws.WriteMessage(websocket.TextMessage, message)
		c.writeMu.Unlock()
		if err != nil {
			c.logger.Error("write error", zap.Error(err))
			return
		}
	}
}

// SendJSON is a helper for sending JSON to this connection. Messages
// arriving after the connection closed are dropped silently.
func (c *Connection) SendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("error marshaling JSON", zap.Error(err))
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		// The socket has fallen too far behind; drop rather than
		// block the sender.
		c.logger.Warn("dropping message for slow connection",
			zap.String("connection_id", c.ID.String()))
	}
}

// closeSend detaches every room subscription and closes the send
// channel exactly once. Safe to call from both the hub and the read
// pump teardown.
func (c *Connection) closeSend() {
	c.unsubscribeAll()

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
