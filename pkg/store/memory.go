package store

import (
	"context"
	"sync"

	"github.com/chessarena/live-server/pkg/clock"
	"github.com/chessarena/live-server/pkg/room"
)

// InMemoryStore is an in-memory implementation of both persistence
// ports, used in tests and single-process deployments without external
// storage.
type InMemoryStore struct {
	mu           sync.RWMutex
	results      map[string]room.CompletedGame
	timeControls map[string]clock.TimeControl
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		results:      make(map[string]room.CompletedGame),
		timeControls: make(map[string]clock.TimeControl),
	}
}

// SaveGameResult records a completed game.
func (s *InMemoryStore) SaveGameResult(_ context.Context, result room.CompletedGame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[result.RoomID] = result
	return nil
}

// GameResult retrieves a stored result by room id.
func (s *InMemoryStore) GameResult(roomID string) (room.CompletedGame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[roomID]
	return result, ok
}

// SaveTimeControl records the time control a game was created with.
func (s *InMemoryStore) SaveTimeControl(_ context.Context, gameID string, tc clock.TimeControl) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timeControls[gameID] = tc
	return nil
}

// LoadTimeControl restores the time control of a persisted game.
func (s *InMemoryStore) LoadTimeControl(_ context.Context, gameID string) (clock.TimeControl, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tc, ok := s.timeControls[gameID]
	if !ok {
		return clock.TimeControl{}, ErrNotFound
	}
	return tc, nil
}
