package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessarena/live-server/internal/color"
	"github.com/chessarena/live-server/pkg/clock"
	"github.com/chessarena/live-server/pkg/room"
)

func TestInMemoryStoreGameResults(t *testing.T) {
	s := NewInMemoryStore()

	result := room.CompletedGame{
		RoomID: "game-1",
		Winner: color.White,
		Reason: "White wins by resignation",
	}
	require.NoError(t, s.SaveGameResult(context.Background(), result))

	got, ok := s.GameResult("game-1")
	require.True(t, ok)
	assert.Equal(t, result, got)

	_, ok = s.GameResult("missing")
	assert.False(t, ok)
}

func TestInMemoryStoreTimeControls(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	tc := clock.TimeControl{InitialTime: 3 * time.Minute, Increment: 2 * time.Second}
	require.NoError(t, s.SaveTimeControl(ctx, "game-1", tc))

	got, err := s.LoadTimeControl(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, tc, got)

	_, err = s.LoadTimeControl(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
