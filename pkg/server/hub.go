// Package server is the websocket transport boundary: it registers
// connections, decodes the closed inbound message set, and routes each
// message to the matchmaking service or the session registry.
package server

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chessarena/live-server/pkg/matchmaking"
	"github.com/chessarena/live-server/pkg/messages"
	"github.com/chessarena/live-server/pkg/metrics"
	"github.com/chessarena/live-server/pkg/room"
)

// Stable error codes reported to clients, one per taxonomy class.
const (
	codeBadPayload   = "bad_payload"
	codeValidation   = "validation_error"
	codeNotFound     = "not_found"
	codePrecondition = "precondition_failed"
	codeRejectedMove = "illegal_move"
)

// InboundHubMessage are the messages that the hub receives
type InboundHubMessage struct {
	Conn    *Connection              // who sent it
	Message messages.InboundMessage // decoded envelope
}

// Hub keeps track of all active connections and routes every inbound
// message to the matchmaking service or a room. Room broadcasts do not
// pass through the hub; each connection subscribes to its rooms
// directly.
type Hub struct {
	mu          sync.RWMutex         // Mutex to protect direct access to the connections map.
	connections map[*Connection]bool // Registered connections

	register   chan *Connection       // Incoming registration
	unregister chan *Connection       // Incoming unregistration
	inbound    chan InboundHubMessage // Channel for inbound messages to route

	done chan struct{}

	matchmaker *matchmaking.Service
	registry   *room.Registry
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewHub creates a new hub
func NewHub(
	matchmaker *matchmaking.Service,
	registry *room.Registry,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		inbound:     make(chan InboundHubMessage),
		done:        make(chan struct{}),
		matchmaker:  matchmaker,
		registry:    registry,
		metrics:     m,
		logger:      logger,
	}
}

// Run is the main execution of the hub
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.registerConnection(conn)

		case conn := <-h.unregister:
			h.unregisterConnection(conn)

		case msg := <-h.inbound:
			h.handleInbound(msg)

		case <-h.done:
			return
		}
	}
}

// Register queues a connection for registration.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister queues a connection for removal. After shutdown the
// connection is torn down directly since the run loop is gone.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
		conn.closeSend()
	}
}

// Shutdown stops the run loop and closes every connection.
func (h *Hub) Shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.connections {
		conn.closeSend()
		delete(h.connections, conn)
	}
}

func (h *Hub) registerConnection(conn *Connection) {
	h.mu.Lock()
	h.connections[conn] = true
	total := len(h.connections)
	h.mu.Unlock()

	h.metrics.Connections.Set(float64(total))
	h.logger.Info("connection registered",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("total", total))

	conn.SendJSON(messages.OutboundMessage{
		Event:   messages.EventConnected,
		Payload: messages.ConnectedPayload{ConnectionID: conn.ID.String()},
	})
}

func (h *Hub) unregisterConnection(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn]; ok {
		delete(h.connections, conn)
		conn.closeSend()
		h.metrics.Connections.Set(float64(len(h.connections)))
	}
}

// handleInbound decodes and routes one message from a client.
func (h *Hub) handleInbound(msg InboundHubMessage) {
	switch msg.Message.Type {
	case messages.TypeJoinQueue:
		h.handleJoinQueue(msg)
	case messages.TypeCancelRequest:
		h.handleCancelRequest(msg)
	case messages.TypeAcceptInvite:
		h.handleAcceptInvite(msg)
	case messages.TypeQueueStatus:
		h.handleQueueStatus(msg)
	case messages.TypeJoinRoom:
		h.handleJoinRoom(msg)
	case messages.TypeSendMove:
		h.handleSendMove(msg)
	case messages.TypeLeaveRoom:
		h.handleLeaveRoom(msg)
	case messages.TypeGameLog:
		h.handleGameLog(msg)
	case messages.TypeResign:
		h.handleResign(msg)
	default:
		h.sendError(msg.Conn, codeBadPayload, "unknown message type")
	}
}

func (h *Hub) handleJoinQueue(msg InboundHubMessage) {
	var payload messages.JoinQueuePayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, codeBadPayload, "invalid JOIN_QUEUE payload")
		return
	}

	now := time.Now()
	req := matchmaking.MatchRequest{
		ID: uuid.New(),
		Player: matchmaking.PlayerSummary{
			ID:          payload.PlayerID,
			DisplayName: payload.DisplayName,
			Elo:         payload.Elo,
			JoinTime:    now,
		},
		MatchType:     matchmaking.MatchType(payload.MatchType),
		MaxEloDiff:    payload.MaxEloDiff,
		InviteAddress: payload.InviteAddress,
		JoinTime:      now,
	}

	resp, err := h.matchmaker.JoinQueue(req)
	if err != nil {
		h.sendError(msg.Conn, codeValidation, err.Error())
		return
	}
	h.updateQueueGauges()

	event := messages.EventQueueJoined
	if resp.MatchID != nil {
		event = messages.EventMatchFound
		h.metrics.MatchesCreated.WithLabelValues(string(req.MatchType)).Inc()
	}
	msg.Conn.SendJSON(messages.OutboundMessage{Event: event, Payload: resp})
}

func (h *Hub) handleCancelRequest(msg InboundHubMessage) {
	var payload messages.CancelRequestPayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, codeBadPayload, "invalid CANCEL_REQUEST payload")
		return
	}

	requestID, err := uuid.Parse(payload.RequestID)
	if err != nil {
		h.sendError(msg.Conn, codeValidation, "invalid request id")
		return
	}

	removed := h.matchmaker.CancelRequest(requestID)
	h.updateQueueGauges()

	msg.Conn.SendJSON(messages.OutboundMessage{
		Event:   messages.EventCancelled,
		Payload: messages.CancelResultPayload{RequestID: payload.RequestID, Removed: removed},
	})
}

func (h *Hub) handleAcceptInvite(msg InboundHubMessage) {
	var payload messages.AcceptInvitePayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, codeBadPayload, "invalid ACCEPT_INVITE payload")
		return
	}

	requestID, err := uuid.Parse(payload.RequestID)
	if err != nil {
		h.sendError(msg.Conn, codeValidation, "invalid request id")
		return
	}

	resp, ok := h.matchmaker.AcceptInvite(requestID, matchmaking.PlayerSummary{
		ID:          payload.PlayerID,
		DisplayName: payload.DisplayName,
		Elo:         payload.Elo,
		JoinTime:    time.Now(),
	})
	if !ok {
		h.sendError(msg.Conn, codeNotFound, "invite not found")
		return
	}

	h.metrics.MatchesCreated.WithLabelValues(string(matchmaking.Private)).Inc()
	msg.Conn.SendJSON(messages.OutboundMessage{Event: messages.EventMatchFound, Payload: resp})
}

func (h *Hub) handleQueueStatus(msg InboundHubMessage) {
	var payload messages.QueueStatusPayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, codeBadPayload, "invalid QUEUE_STATUS payload")
		return
	}

	requestID, err := uuid.Parse(payload.RequestID)
	if err != nil {
		h.sendError(msg.Conn, codeValidation, "invalid request id")
		return
	}

	status, ok := h.matchmaker.QueueStatus(requestID)
	if !ok {
		h.sendError(msg.Conn, codeNotFound, "request not found")
		return
	}

	msg.Conn.SendJSON(messages.OutboundMessage{Event: messages.EventQueueStatus, Payload: status})
}

func (h *Hub) handleJoinRoom(msg InboundHubMessage) {
	var payload messages.JoinRoomPayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, codeBadPayload, "invalid JOIN_ROOM payload")
		return
	}

	r, joined, err := h.registry.Join(payload.RoomID, payload.PlayerID, payload.PlayerName)
	if err != nil {
		h.sendError(msg.Conn, errorCode(err), err.Error())
		return
	}

	// Subscribe after joining so the member receives every later
	// broadcast; its own join is answered directly below.
	msg.Conn.SubscribeRoom(r)
	msg.Conn.SendJSON(messages.OutboundMessage{Event: messages.EventRoomJoined, Payload: joined})
}

func (h *Hub) handleSendMove(msg InboundHubMessage) {
	var payload messages.SendMovePayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, codeBadPayload, "invalid SEND_MOVE payload")
		return
	}

	made, err := h.registry.SendMove(payload.RoomID, payload.PlayerID, payload.Move)
	if err != nil {
		h.sendError(msg.Conn, errorCode(err), err.Error())
		return
	}

	h.metrics.MovesApplied.Inc()
	msg.Conn.SendJSON(messages.OutboundMessage{Event: messages.EventMoveMade, Payload: made})
}

func (h *Hub) handleLeaveRoom(msg InboundHubMessage) {
	var payload messages.LeaveRoomPayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, codeBadPayload, "invalid LEAVE_ROOM payload")
		return
	}

	if err := h.registry.Leave(payload.RoomID, payload.PlayerID); err != nil {
		h.sendError(msg.Conn, errorCode(err), err.Error())
		return
	}

	msg.Conn.UnsubscribeRoom(payload.RoomID)
	msg.Conn.SendJSON(messages.OutboundMessage{
		Event:   messages.EventPlayerLeft,
		Payload: messages.PlayerLeftPayload{RoomID: payload.RoomID, PlayerID: payload.PlayerID},
	})
}

func (h *Hub) handleGameLog(msg InboundHubMessage) {
	var payload messages.GameLogRequest
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, codeBadPayload, "invalid GAME_LOG payload")
		return
	}

	moves, err := h.registry.GameLog(payload.RoomID)
	if err != nil {
		h.sendError(msg.Conn, errorCode(err), err.Error())
		return
	}

	msg.Conn.SendJSON(messages.OutboundMessage{
		Event:   messages.EventGameLog,
		Payload: messages.GameLogPayload{RoomID: payload.RoomID, Moves: moves},
	})
}

func (h *Hub) handleResign(msg InboundHubMessage) {
	var payload messages.ResignPayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, codeBadPayload, "invalid RESIGN payload")
		return
	}

	if err := h.registry.Resign(payload.RoomID, payload.PlayerID); err != nil {
		h.sendError(msg.Conn, errorCode(err), err.Error())
		return
	}
	// The GAME_OVER broadcast reaches the resigner through their room
	// subscription.
}

func (h *Hub) updateQueueGauges() {
	for _, t := range []matchmaking.MatchType{matchmaking.Rated, matchmaking.Casual, matchmaking.Private} {
		h.metrics.QueueDepth.WithLabelValues(string(t)).Set(float64(h.matchmaker.QueueDepth(t)))
	}
}

func (h *Hub) sendError(conn *Connection, code, message string) {
	conn.SendJSON(messages.OutboundMessage{
		Event:   messages.EventError,
		Payload: messages.ErrorPayload{Code: code, Message: message},
	})
}

// errorCode maps core errors onto the stable code set.
func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return codeNotFound
	case errors.Is(err, matchmaking.ErrMissingInviteAddress):
		return codeValidation
	case errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrAlreadyInRoom),
		errors.Is(err, room.ErrPlayerNotInRoom),
		errors.Is(err, room.ErrGameNotStarted),
		errors.Is(err, room.ErrGameOver),
		errors.Is(err, room.ErrNotYourTurn),
		errors.Is(err, room.ErrOutOfTime):
		return codePrecondition
	default:
		return codeRejectedMove
	}
}
