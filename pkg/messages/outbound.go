// Package messages defines the closed set of inbound and outbound
// message shapes exchanged with clients. The transport layer serializes
// them as JSON; the core only deals in these structs.
package messages

import (
	"time"

	"github.com/chessarena/live-server/internal/color"
)

// OutboundEvent enumerates every message kind broadcast to clients.
type OutboundEvent string

// Outbound events.
const (
	EventConnected   OutboundEvent = "CONNECTED"
	EventQueueJoined OutboundEvent = "QUEUE_JOINED"
	EventMatchFound  OutboundEvent = "MATCH_FOUND"
	EventQueueStatus OutboundEvent = "QUEUE_STATUS"
	EventCancelled   OutboundEvent = "CANCEL_RESULT"
	EventRoomJoined  OutboundEvent = "ROOM_JOINED"
	EventMoveMade    OutboundEvent = "MOVE_MADE"
	EventPlayerLeft  OutboundEvent = "PLAYER_LEFT"
	EventGameLog     OutboundEvent = "GAME_LOG"
	EventGameOver    OutboundEvent = "GAME_OVER"
	EventError       OutboundEvent = "ERROR"
)

// OutboundMessage is how we wrap responses before sending them to the
// client.
type OutboundMessage struct {
	Event   OutboundEvent `json:"event"`
	Payload interface{}   `json:"payload"`
}

// ConnectedPayload acknowledges a new connection.
type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
}

// RoomPlayer is one roster entry with its assigned color.
type RoomPlayer struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Color color.Color `json:"color"`
}

// GameState is the broadcast snapshot of a room's game.
type GameState struct {
	FEN           string      `json:"fen"`
	Status        string      `json:"status"`
	CurrentTurn   color.Color `json:"current_turn"`
	WhiteTimeMs   int64       `json:"white_time_ms"`
	BlackTimeMs   int64       `json:"black_time_ms"`
	WhiteTimeText string      `json:"white_time"`
	BlackTimeText string      `json:"black_time"`
}

// MoveRecord is one applied move, appended to a room's log.
type MoveRecord struct {
	PlayerID  string    `json:"player_id"`
	Notation  string    `json:"notation"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomJoinedPayload announces a roster change to all subscribers.
type RoomJoinedPayload struct {
	RoomID    string       `json:"room_id"`
	PlayerID  string       `json:"player_id"`
	Players   []RoomPlayer `json:"players"`
	GameState *GameState   `json:"game_state,omitempty"`
}

// MoveMadePayload announces an applied move with the updated state.
type MoveMadePayload struct {
	RoomID       string    `json:"room_id"`
	PlayerID     string    `json:"player_id"`
	MoveNotation string    `json:"move_notation"`
	GameState    GameState `json:"game_state"`
}

// PlayerLeftPayload announces a departure.
type PlayerLeftPayload struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
}

// GameLogPayload carries the ordered move list of a room.
type GameLogPayload struct {
	RoomID string       `json:"room_id"`
	Moves  []MoveRecord `json:"moves"`
}

// GameOverPayload announces a terminal game state with a human-readable
// reason, e.g. "White wins on time".
type GameOverPayload struct {
	RoomID string      `json:"room_id"`
	Winner color.Color `json:"winner,omitempty"`
	Reason string      `json:"reason"`
}

// CancelResultPayload reports whether a cancel removed anything.
type CancelResultPayload struct {
	RequestID string `json:"request_id"`
	Removed   bool   `json:"removed"`
}

// ErrorPayload reports a failed operation back to the caller.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
