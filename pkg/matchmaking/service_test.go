package matchmaking

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chessarena/live-server/pkg/events"
)

type fakeRooms struct {
	mu     sync.Mutex
	opened []string
}

func (f *fakeRooms) Open(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, roomID)
}

func (f *fakeRooms) openedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...)
}

func newTestService() (*Service, *fakeRooms) {
	rooms := &fakeRooms{}
	return NewService(rooms, events.NewPublisher(), zap.NewNop()), rooms
}

func TestJoinQueueCreatesMatchAndOpensRoom(t *testing.T) {
	svc, rooms := newTestService()

	first := MatchRequest{
		ID:        uuid.New(),
		Player:    PlayerSummary{ID: "alice", Elo: 1500},
		MatchType: Rated,
		JoinTime:  time.Now(),
	}
	resp, err := svc.JoinQueue(first)
	require.NoError(t, err)
	assert.Equal(t, StatusAddedToQueue, resp.Status)
	assert.Nil(t, resp.MatchID)

	second := MatchRequest{
		ID:        uuid.New(),
		Player:    PlayerSummary{ID: "bob", Elo: 1550},
		MatchType: Rated,
		JoinTime:  time.Now(),
	}
	resp, err = svc.JoinQueue(second)
	require.NoError(t, err)
	assert.Equal(t, StatusMatchFound, resp.Status)
	require.NotNil(t, resp.MatchID)
	assert.Equal(t, resp.MatchID.String(), resp.RoomID)

	match, ok := svc.Match(*resp.MatchID)
	require.True(t, ok)
	assert.Equal(t, "alice", match.Player1.ID)
	assert.Equal(t, "bob", match.Player2.ID)

	assert.Equal(t, []string{resp.RoomID}, rooms.openedIDs())
}

func TestJoinQueuePrivateRequiresAddress(t *testing.T) {
	svc, rooms := newTestService()

	_, err := svc.JoinQueue(MatchRequest{
		ID:        uuid.New(),
		Player:    PlayerSummary{ID: "alice"},
		MatchType: Private,
	})
	assert.ErrorIs(t, err, ErrMissingInviteAddress)
	assert.Empty(t, rooms.openedIDs())
}

func TestAcceptInviteCreatesMatch(t *testing.T) {
	svc, rooms := newTestService()

	invite := MatchRequest{
		ID:            uuid.New(),
		Player:        PlayerSummary{ID: "alice"},
		MatchType:     Private,
		InviteAddress: "alice@club",
	}
	resp, err := svc.JoinQueue(invite)
	require.NoError(t, err)
	assert.Equal(t, StatusWaitingInvite, resp.Status)

	pending, ok := svc.CheckInvite("alice@club")
	require.True(t, ok)
	assert.Equal(t, invite.ID, pending.ID)

	resp, ok = svc.AcceptInvite(invite.ID, PlayerSummary{ID: "bob"})
	require.True(t, ok)
	assert.Equal(t, StatusMatchCreated, resp.Status)
	require.NotNil(t, resp.MatchID)
	assert.Len(t, rooms.openedIDs(), 1)

	// Consumed: accepting again fails and the address is free.
	_, ok = svc.AcceptInvite(invite.ID, PlayerSummary{ID: "carol"})
	assert.False(t, ok)
	_, ok = svc.CheckInvite("alice@club")
	assert.False(t, ok)
}

func TestCancelRequestAcrossPools(t *testing.T) {
	svc, _ := newTestService()

	req := MatchRequest{
		ID:        uuid.New(),
		Player:    PlayerSummary{ID: "alice", Elo: 1200},
		MatchType: Rated,
		JoinTime:  time.Now(),
	}
	_, err := svc.JoinQueue(req)
	require.NoError(t, err)

	assert.True(t, svc.CancelRequest(req.ID))
	assert.False(t, svc.CancelRequest(req.ID))
	assert.Equal(t, 0, svc.QueueDepth(Rated))

	// A cancelled request no longer pairs.
	other := MatchRequest{
		ID:        uuid.New(),
		Player:    PlayerSummary{ID: "bob", Elo: 1250},
		MatchType: Rated,
		JoinTime:  time.Now(),
	}
	resp, err := svc.JoinQueue(other)
	require.NoError(t, err)
	assert.Equal(t, StatusAddedToQueue, resp.Status)
}

func TestReleaseMatchDropsActiveEntry(t *testing.T) {
	svc, _ := newTestService()

	for _, id := range []string{"alice", "bob"} {
		_, err := svc.JoinQueue(MatchRequest{
			ID:        uuid.New(),
			Player:    PlayerSummary{ID: id, Elo: 1500},
			MatchType: Casual,
			JoinTime:  time.Now(),
		})
		require.NoError(t, err)
	}

	var matchID uuid.UUID
	// The second join paired; find the match through the room id.
	svc.mu.RLock()
	for id := range svc.activeMatches {
		matchID = id
	}
	svc.mu.RUnlock()
	require.NotEqual(t, uuid.Nil, matchID)

	svc.ReleaseMatch(matchID)
	_, ok := svc.Match(matchID)
	assert.False(t, ok)
}

func TestQueueStatusThroughService(t *testing.T) {
	svc, _ := newTestService()

	req := MatchRequest{
		ID:        uuid.New(),
		Player:    PlayerSummary{ID: "alice", Elo: 1500},
		MatchType: Casual,
		JoinTime:  time.Now(),
	}
	_, err := svc.JoinQueue(req)
	require.NoError(t, err)

	status, ok := svc.QueueStatus(req.ID)
	require.True(t, ok)
	assert.Equal(t, 1, status.Position)
	assert.Equal(t, Casual, status.MatchType)
}
