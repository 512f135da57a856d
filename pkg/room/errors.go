package room

import "errors"

// Precondition and not-found failures reported to callers. None of
// these mutate room state.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrAlreadyInRoom   = errors.New("player is already in the room")
	ErrPlayerNotInRoom = errors.New("player not in room")
	ErrGameNotStarted  = errors.New("game not started")
	ErrGameOver        = errors.New("game is over")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrOutOfTime       = errors.New("out of time")
)
