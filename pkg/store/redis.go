// Package store implements the persistence collaborators consumed by
// the session core: a Redis store for live snapshots and time-control
// resumption, a Postgres archive for final game records, and an
// in-memory store for tests and single-process setups.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chessarena/live-server/pkg/clock"
	"github.com/chessarena/live-server/pkg/messages"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("record not found")

// snapshotTTL bounds how long live-room state outlives its room.
const snapshotTTL = 24 * time.Hour

// RedisStore keeps live room snapshots and per-game time controls so a
// restarted process can resume persisted games.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func timeControlKey(gameID string) string { return "game:tc:" + gameID }
func snapshotKey(roomID string) string    { return "room:snapshot:" + roomID }

// SaveTimeControl records the time control a game was created with.
func (s *RedisStore) SaveTimeControl(ctx context.Context, gameID string, tc clock.TimeControl) error {
	raw, err := json.Marshal(tc)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, timeControlKey(gameID), raw, snapshotTTL).Err()
}

// LoadTimeControl restores the time control of a persisted game. It
// implements the registry's TimeControlLoader port.
func (s *RedisStore) LoadTimeControl(ctx context.Context, gameID string) (clock.TimeControl, error) {
	raw, err := s.rdb.Get(ctx, timeControlKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return clock.TimeControl{}, ErrNotFound
	}
	if err != nil {
		return clock.TimeControl{}, err
	}

	var tc clock.TimeControl
	if err := json.Unmarshal(raw, &tc); err != nil {
		return clock.TimeControl{}, fmt.Errorf("decode time control: %w", err)
	}
	return tc, nil
}

// SaveSnapshot stores the latest broadcast game state for a room.
func (s *RedisStore) SaveSnapshot(ctx context.Context, roomID string, state messages.GameState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, snapshotKey(roomID), raw, snapshotTTL).Err()
}

// LoadSnapshot returns the last stored game state for a room.
func (s *RedisStore) LoadSnapshot(ctx context.Context, roomID string) (messages.GameState, error) {
	raw, err := s.rdb.Get(ctx, snapshotKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return messages.GameState{}, ErrNotFound
	}
	if err != nil {
		return messages.GameState{}, err
	}

	var state messages.GameState
	if err := json.Unmarshal(raw, &state); err != nil {
		return messages.GameState{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return state, nil
}

// DeleteSnapshot drops the live state of a torn-down room.
func (s *RedisStore) DeleteSnapshot(ctx context.Context, roomID string) error {
	return s.rdb.Del(ctx, snapshotKey(roomID), timeControlKey(roomID)).Err()
}
