package room

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chessarena/live-server/pkg/clock"
	"github.com/chessarena/live-server/pkg/events"
	"github.com/chessarena/live-server/pkg/messages"
)

// Archiver persists completed games. Calls are fallible; retrying or
// queueing failed writes is the implementation's concern, not the
// registry's.
type Archiver interface {
	SaveGameResult(ctx context.Context, result CompletedGame) error
}

// TimeControlLoader restores the time control of a persisted game when
// a room is resumed.
type TimeControlLoader interface {
	LoadTimeControl(ctx context.Context, gameID string) (clock.TimeControl, error)
}

// Registry is the process-wide map from room id to live room. Rooms are
// created on first join and deleted once empty or once a terminal game
// has been handed to the archiver. The registry's lock only guards the
// map; lock order is always registry-then-room, never the reverse.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	defaultTC clock.TimeControl
	archiver  Archiver
	loader    TimeControlLoader
	publisher *events.Publisher
	logger    *zap.Logger
}

// NewRegistry creates an empty registry and wires its lifecycle event
// handlers.
func NewRegistry(
	defaultTC clock.TimeControl,
	archiver Archiver,
	loader TimeControlLoader,
	publisher *events.Publisher,
	logger *zap.Logger,
) *Registry {
	reg := &Registry{
		rooms:     make(map[string]*Room),
		defaultTC: defaultTC,
		archiver:  archiver,
		loader:    loader,
		publisher: publisher,
		logger:    logger,
	}

	reg.setupEventHandlers()
	return reg
}

// setupEventHandlers subscribes the registry to room lifecycle events.
func (reg *Registry) setupEventHandlers() {
	// A completed game is archived, then its room is torn down.
	reg.publisher.Subscribe(events.EventGameCompleted, func(event events.Event) {
		result, ok := event.Payload.(CompletedGame)
		if !ok {
			reg.logger.Error("invalid game completed payload type")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := reg.archiver.SaveGameResult(ctx, result); err != nil {
			reg.logger.Error("failed to archive game result",
				zap.String("room_id", result.RoomID),
				zap.Error(err))
		}

		reg.Remove(result.RoomID)
	})
}

// Open creates the room for the given id if it does not exist yet,
// using the default time control. Satisfies the matchmaking service's
// room-opening dependency.
func (reg *Registry) Open(roomID string) {
	reg.openRoom(roomID, reg.defaultTC)
}

// OpenWithTimeControl creates the room for the given id with an
// explicit time control.
func (reg *Registry) OpenWithTimeControl(roomID string, tc clock.TimeControl) *Room {
	return reg.openRoom(roomID, tc)
}

func (reg *Registry) openRoom(roomID string, tc clock.TimeControl) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if r, ok := reg.rooms[roomID]; ok {
		return r
	}

	r := newRoom(roomID, tc, reg.publisher, reg.logger)
	reg.rooms[roomID] = r

	reg.logger.Info("room created", zap.String("room_id", roomID))
	reg.publisher.Publish(events.Event{Type: events.EventRoomCreated, RoomID: roomID, Payload: tc})
	return r
}

// Resume re-creates a room for a persisted game, restoring its time
// control through the loader.
func (reg *Registry) Resume(ctx context.Context, gameID string) (*Room, error) {
	tc, err := reg.loader.LoadTimeControl(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return reg.openRoom(gameID, tc), nil
}

// Get returns a live room by id.
func (reg *Registry) Get(roomID string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[roomID]
	return r, ok
}

// Join adds a player to a room, creating the room on first join.
func (reg *Registry) Join(roomID, playerID, playerName string) (*Room, messages.RoomJoinedPayload, error) {
	r := reg.openRoom(roomID, reg.defaultTC)
	payload, err := r.Join(playerID, playerName)
	return r, payload, err
}

// SendMove applies a move in a room.
func (reg *Registry) SendMove(roomID, playerID, notation string) (messages.MoveMadePayload, error) {
	r, ok := reg.Get(roomID)
	if !ok {
		return messages.MoveMadePayload{}, ErrRoomNotFound
	}
	return r.SendMove(playerID, notation)
}

// Resign concedes a game in a room.
func (reg *Registry) Resign(roomID, playerID string) error {
	r, ok := reg.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return r.Resign(playerID)
}

// Leave removes a player from a room and garbage-collects the room
// once its roster is empty.
func (reg *Registry) Leave(roomID, playerID string) error {
	r, ok := reg.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	empty, err := r.Leave(playerID)
	if err != nil {
		return err
	}

	if empty {
		// An aborted game is still handed to the archiver before the
		// room disappears.
		if r.Status() == StatusAborted {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			r.mu.Lock()
			result := r.completedGameLocked()
			r.mu.Unlock()

			if archiveErr := reg.archiver.SaveGameResult(ctx, result); archiveErr != nil {
				reg.logger.Error("failed to archive aborted game",
					zap.String("room_id", roomID),
					zap.Error(archiveErr))
			}
		}
		reg.Remove(roomID)
	}
	return nil
}

// GameLog returns the ordered move list of a room.
func (reg *Registry) GameLog(roomID string) ([]messages.MoveRecord, error) {
	r, ok := reg.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r.GameLog(), nil
}

// Remove deletes a room from the registry.
func (reg *Registry) Remove(roomID string) {
	reg.mu.Lock()
	_, ok := reg.rooms[roomID]
	delete(reg.rooms, roomID)
	reg.mu.Unlock()

	if ok {
		reg.logger.Info("room removed", zap.String("room_id", roomID))
		reg.publisher.Publish(events.Event{Type: events.EventRoomRemoved, RoomID: roomID})
	}
}

// ActiveRooms reports how many rooms are live.
func (reg *Registry) ActiveRooms() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// SweepTimeouts checks every in-progress room for an exhausted clock
// and ends those games. Wired to a coarse periodic scheduler job; the
// on-move check catches whatever the sweep has not seen yet, so either
// trigger may arrive first.
func (reg *Registry) SweepTimeouts() int {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	ended := 0
	for _, r := range rooms {
		if winner, timedOut := r.CheckTimeOut(); timedOut {
			ended++
			reg.logger.Info("game ended on time",
				zap.String("room_id", r.ID),
				zap.String("winner", string(winner)))
		}
	}
	return ended
}
