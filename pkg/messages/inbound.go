package messages

import "encoding/json"

// InboundType enumerates every message kind a client may send. The hub
// switches over this closed set; anything else is answered with an
// ERROR message.
type InboundType string

// Inbound message types.
const (
	TypeJoinQueue     InboundType = "JOIN_QUEUE"
	TypeCancelRequest InboundType = "CANCEL_REQUEST"
	TypeAcceptInvite  InboundType = "ACCEPT_INVITE"
	TypeQueueStatus   InboundType = "QUEUE_STATUS"
	TypeJoinRoom      InboundType = "JOIN_ROOM"
	TypeSendMove      InboundType = "SEND_MOVE"
	TypeLeaveRoom     InboundType = "LEAVE_ROOM"
	TypeGameLog       InboundType = "GAME_LOG"
	TypeResign        InboundType = "RESIGN"
)

// InboundMessage is the generic wrapper for messages coming from the
// client. The "type" field tells us the action; "payload" is the data
// we parse further.
type InboundMessage struct {
	Type    InboundType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// JoinQueuePayload asks to be paired.
type JoinQueuePayload struct {
	PlayerID      string `json:"player_id"`
	DisplayName   string `json:"display_name"`
	Elo           int    `json:"elo"`
	MatchType     string `json:"match_type"`
	MaxEloDiff    int    `json:"max_elo_diff,omitempty"`
	InviteAddress string `json:"invite_address,omitempty"`
}

// CancelRequestPayload withdraws a pending match request.
type CancelRequestPayload struct {
	RequestID string `json:"request_id"`
}

// AcceptInvitePayload accepts a private invite by the inviter's request id.
type AcceptInvitePayload struct {
	RequestID   string `json:"request_id"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Elo         int    `json:"elo"`
}

// QueueStatusPayload asks for the position of a pending request.
type QueueStatusPayload struct {
	RequestID string `json:"request_id"`
}

// JoinRoomPayload enters a room, creating it on first join.
type JoinRoomPayload struct {
	RoomID     string `json:"room_id"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name,omitempty"`
}

// SendMovePayload plays a move in a room.
type SendMovePayload struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
	Move     string `json:"move"`
}

// LeaveRoomPayload removes a player from a room.
type LeaveRoomPayload struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
}

// GameLogRequest requests the ordered move list of a room.
type GameLogRequest struct {
	RoomID string `json:"room_id"`
}

// ResignPayload concedes the game to the opponent.
type ResignPayload struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
}
