package matchmaking

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chessarena/live-server/pkg/events"
)

// Rooms is the session-registry surface the service needs: opening a
// live room for a freshly created match.
type Rooms interface {
	Open(roomID string)
}

// Service glues the queue to the session registry. It accepts join,
// cancel and accept-invite requests, performs ELO-bounded pairing, and
// instantiates a room for every match found. Active matches live in
// their own lock domain so match lookups never contend with queue
// scans.
type Service struct {
	queue *Queue

	mu            sync.RWMutex
	activeMatches map[uuid.UUID]Match

	rooms     Rooms
	publisher *events.Publisher
	logger    *zap.Logger

	now func() time.Time
}

// NewService creates a matchmaking service backed by an empty queue.
func NewService(rooms Rooms, publisher *events.Publisher, logger *zap.Logger) *Service {
	return &Service{
		queue:         NewQueue(),
		activeMatches: make(map[uuid.UUID]Match),
		rooms:         rooms,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

// JoinQueue routes a request into its pool. Pairing failure is not an
// error: the normal outcome for an empty pool is "Added to queue". The
// only validation failure is a private request without an invite
// address.
func (s *Service) JoinQueue(req MatchRequest) (Response, error) {
	switch req.MatchType {
	case Rated:
		if opponent, ok := s.queue.JoinRated(&req); ok {
			return s.createMatch(opponent, &req, Rated), nil
		}
	case Casual:
		if opponent, ok := s.queue.JoinCasual(&req); ok {
			return s.createMatch(opponent, &req, Casual), nil
		}
	case Private:
		if err := s.queue.AddInvite(&req); err != nil {
			return Response{}, err
		}
		return Response{Status: StatusWaitingInvite, RequestID: req.ID}, nil
	}

	s.logger.Debug("request queued",
		zap.String("request_id", req.ID.String()),
		zap.String("match_type", string(req.MatchType)),
		zap.Int("elo", req.Player.Elo))

	return Response{Status: StatusAddedToQueue, RequestID: req.ID}, nil
}

// AcceptInvite consumes a pending private invite by the inviter's
// request id and creates the match. The second return is false when no
// such invite exists.
func (s *Service) AcceptInvite(inviterRequestID uuid.UUID, accepting PlayerSummary) (Response, bool) {
	invite, ok := s.queue.TakeInvite(inviterRequestID)
	if !ok {
		return Response{}, false
	}

	resp := s.createMatch(invite, &MatchRequest{
		ID:        inviterRequestID,
		Player:    accepting,
		MatchType: Private,
	}, Private)
	resp.Status = StatusMatchCreated
	return resp, true
}

// CancelRequest removes a pending request. Idempotent: cancelling an
// already-consumed or unknown id returns false.
func (s *Service) CancelRequest(requestID uuid.UUID) bool {
	removed := s.queue.Cancel(requestID)
	if removed {
		s.logger.Debug("request cancelled", zap.String("request_id", requestID.String()))
	}
	return removed
}

// QueueStatus reports the position and estimated wait of a pending
// request.
func (s *Service) QueueStatus(requestID uuid.UUID) (QueueStatus, bool) {
	return s.queue.Status(requestID)
}

// CheckInvite looks up a pending private invite by its invite address.
func (s *Service) CheckInvite(address string) (MatchRequest, bool) {
	return s.queue.InviteByAddress(address)
}

// Match returns an active match by id.
func (s *Service) Match(matchID uuid.UUID) (Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.activeMatches[matchID]
	return m, ok
}

// ReleaseMatch drops a match from the active table once its room has
// been torn down. Long-term history belongs to the persistence layer.
func (s *Service) ReleaseMatch(matchID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeMatches, matchID)
}

// ExpandEloRanges widens waiting rated requests' ranges; wired to a
// periodic scheduler job.
func (s *Service) ExpandEloRanges() {
	s.queue.ExpandEloRanges()
}

// QueueDepth reports the number of pending requests for a match type.
func (s *Service) QueueDepth(t MatchType) int {
	return s.queue.Depth(t)
}

// createMatch records the pairing and opens its room. The room id is
// the match id, so both players can join over the transport with the
// id announced in the response.
func (s *Service) createMatch(p1, p2 *MatchRequest, t MatchType) Response {
	match := Match{
		ID:        uuid.New(),
		Player1:   p1.Player,
		Player2:   p2.Player,
		MatchType: t,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.activeMatches[match.ID] = match
	s.mu.Unlock()

	roomID := match.ID.String()
	s.rooms.Open(roomID)

	s.publisher.Publish(events.Event{
		Type:    events.EventMatchCreated,
		RoomID:  roomID,
		Payload: match,
	})

	s.logger.Info("match created",
		zap.String("match_id", match.ID.String()),
		zap.String("match_type", string(t)),
		zap.String("player1", p1.Player.ID),
		zap.String("player2", p2.Player.ID))

	return Response{
		Status:    StatusMatchFound,
		RequestID: p2.ID,
		MatchID:   &match.ID,
		RoomID:    roomID,
	}
}
