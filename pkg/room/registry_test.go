package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chessarena/live-server/internal/color"
	"github.com/chessarena/live-server/pkg/clock"
	"github.com/chessarena/live-server/pkg/events"
)

type fakeArchiver struct {
	mu      sync.Mutex
	results []CompletedGame
}

func (f *fakeArchiver) SaveGameResult(_ context.Context, result CompletedGame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
	return nil
}

func (f *fakeArchiver) archived() []CompletedGame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CompletedGame(nil), f.results...)
}

type fakeLoader struct {
	tc  clock.TimeControl
	err error
}

func (f *fakeLoader) LoadTimeControl(context.Context, string) (clock.TimeControl, error) {
	return f.tc, f.err
}

func newTestRegistry(tc clock.TimeControl) (*Registry, *fakeArchiver) {
	archiver := &fakeArchiver{}
	loader := &fakeLoader{tc: tc}
	reg := NewRegistry(tc, archiver, loader, events.NewPublisher(), zap.NewNop())
	return reg, archiver
}

func TestJoinCreatesRoomOnFirstJoin(t *testing.T) {
	reg, _ := newTestRegistry(testTC)

	assert.Equal(t, 0, reg.ActiveRooms())

	r, payload, err := reg.Join("game-1", "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "game-1", r.ID)
	assert.Equal(t, "alice", payload.PlayerID)
	assert.Equal(t, 1, reg.ActiveRooms())

	// A second join lands in the same room.
	r2, _, err := reg.Join("game-1", "bob", "Bob")
	require.NoError(t, err)
	assert.Same(t, r, r2)
	assert.Equal(t, StatusInProgress, r.Status())
}

func TestOpenIsIdempotent(t *testing.T) {
	reg, _ := newTestRegistry(testTC)

	reg.Open("game-1")
	reg.Open("game-1")
	assert.Equal(t, 1, reg.ActiveRooms())

	r, ok := reg.Get("game-1")
	require.True(t, ok)
	assert.Equal(t, StatusWaiting, r.Status())
}

func TestOperationsOnMissingRoom(t *testing.T) {
	reg, _ := newTestRegistry(testTC)

	_, err := reg.SendMove("nope", "alice", "e2e4")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.ErrorIs(t, reg.Resign("nope", "alice"), ErrRoomNotFound)
	assert.ErrorIs(t, reg.Leave("nope", "alice"), ErrRoomNotFound)
	_, err = reg.GameLog("nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCompletedGameIsArchivedAndRemoved(t *testing.T) {
	reg, archiver := newTestRegistry(testTC)

	_, _, err := reg.Join("game-1", "alice", "Alice")
	require.NoError(t, err)
	_, _, err = reg.Join("game-1", "bob", "Bob")
	require.NoError(t, err)

	_, err = reg.SendMove("game-1", "alice", "e2e4")
	require.NoError(t, err)
	require.NoError(t, reg.Resign("game-1", "bob"))

	// Archival and teardown happen on the event path.
	require.Eventually(t, func() bool {
		return reg.ActiveRooms() == 0 && len(archiver.archived()) == 1
	}, time.Second, 5*time.Millisecond)

	result := archiver.archived()[0]
	assert.Equal(t, "game-1", result.RoomID)
	assert.Equal(t, color.White, result.Winner)
	assert.Equal(t, "White wins by resignation", result.Reason)
	require.Len(t, result.Moves, 1)
	assert.Equal(t, "e2e4", result.Moves[0].Notation)
	assert.NotEmpty(t, result.FinalFEN)
}

func TestLeaveArchivesAbortedGameAndRemovesRoom(t *testing.T) {
	reg, archiver := newTestRegistry(testTC)

	_, _, err := reg.Join("game-1", "alice", "Alice")
	require.NoError(t, err)
	_, _, err = reg.Join("game-1", "bob", "Bob")
	require.NoError(t, err)

	require.NoError(t, reg.Leave("game-1", "alice"))
	assert.Equal(t, 1, reg.ActiveRooms())

	require.NoError(t, reg.Leave("game-1", "bob"))
	assert.Equal(t, 0, reg.ActiveRooms())

	results := archiver.archived()
	require.Len(t, results, 1)
	assert.Equal(t, "all players left", results[0].Reason)
	assert.Empty(t, string(results[0].Winner))

	// Both seats are archived even though the roster emptied first.
	require.Len(t, results[0].Players, 2)
	assert.Equal(t, "alice", results[0].Players[0].ID)
	assert.Equal(t, color.White, results[0].Players[0].Color)
	assert.Equal(t, "bob", results[0].Players[1].ID)
	assert.Equal(t, color.Black, results[0].Players[1].Color)
}

func TestLeaveWaitingRoomRemovesWithoutArchive(t *testing.T) {
	reg, archiver := newTestRegistry(testTC)

	_, _, err := reg.Join("game-1", "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, reg.Leave("game-1", "alice"))

	assert.Equal(t, 0, reg.ActiveRooms())
	assert.Empty(t, archiver.archived())
}

func TestResumeRestoresTimeControl(t *testing.T) {
	tc := clock.TimeControl{InitialTime: time.Minute, Increment: time.Second}
	reg, _ := newTestRegistry(testTC)
	reg.loader = &fakeLoader{tc: tc}

	r, err := reg.Resume(context.Background(), "old-game")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, r.LiveRemaining(color.White))

	reg.loader = &fakeLoader{err: errors.New("not found")}
	_, err = reg.Resume(context.Background(), "missing-game")
	assert.Error(t, err)
}

func TestConcurrentGamesDoNotInterfere(t *testing.T) {
	reg, _ := newTestRegistry(testTC)

	const games = 20
	var wg sync.WaitGroup
	wg.Add(games)
	for i := 0; i < games; i++ {
		go func(n int) {
			defer wg.Done()
			roomID := "game-" + string(rune('a'+n))
			_, _, err := reg.Join(roomID, "white-player", "White")
			assert.NoError(t, err)
			_, _, err = reg.Join(roomID, "black-player", "Black")
			assert.NoError(t, err)
			_, err = reg.SendMove(roomID, "white-player", "e2e4")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, games, reg.ActiveRooms())
	for i := 0; i < games; i++ {
		log, err := reg.GameLog("game-" + string(rune('a'+i)))
		require.NoError(t, err)
		assert.Len(t, log, 1)
	}
}

func TestSweepTimeoutsEndsExpiredGames(t *testing.T) {
	reg, archiver := newTestRegistry(clock.TimeControl{InitialTime: 50 * time.Millisecond})

	_, _, err := reg.Join("game-1", "alice", "Alice")
	require.NoError(t, err)
	_, _, err = reg.Join("game-1", "bob", "Bob")
	require.NoError(t, err)

	// Still waiting room: the sweep must skip it.
	_, _, err = reg.Join("game-2", "carol", "Carol")
	require.NoError(t, err)

	assert.Equal(t, 0, reg.SweepTimeouts())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, reg.SweepTimeouts())

	require.Eventually(t, func() bool {
		return len(archiver.archived()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Black wins on time", archiver.archived()[0].Reason)

	// Only the finished room was torn down.
	_, ok := reg.Get("game-2")
	assert.True(t, ok)
}
