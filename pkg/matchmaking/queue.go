// Package matchmaking pairs waiting players into matches: rated pairing
// bounded by ELO range, casual first-come-first-served pairing, and
// private invites keyed by invite address.
package matchmaking

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrMissingInviteAddress rejects a private request without an address.
// This is a validation failure; the request is never enqueued.
var ErrMissingInviteAddress = errors.New("private match request missing invite address")

// Queue holds pending match requests. The three collections form a
// single mutual-exclusion domain: every operation takes the one lock so
// a cancel can never race a concurrent pairing into partial state.
type Queue struct {
	mu             sync.Mutex
	ratedQueue     []*MatchRequest
	casualQueue    []*MatchRequest
	privateInvites map[string]*MatchRequest // invite address -> pending request

	now func() time.Time
}

// NewQueue creates an empty matchmaking queue.
func NewQueue() *Queue {
	return &Queue{
		privateInvites: make(map[string]*MatchRequest),
		now:            time.Now,
	}
}

// JoinRated pairs the request with the first queued rated request whose
// ELO difference fits either side's range, so a long-waiting player's
// widened range counts. Tie-break is FIFO order, not closest ELO. The
// removed opponent is returned when a pairing happened.
func (q *Queue) JoinRated(req *MatchRequest) (opponent *MatchRequest, paired bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, waiting := range q.ratedQueue {
		diff := waiting.Player.Elo - req.Player.Elo
		if diff < 0 {
			diff = -diff
		}
		if diff <= req.effectiveMaxEloDiff() || diff <= waiting.effectiveMaxEloDiff() {
			q.ratedQueue = append(q.ratedQueue[:i], q.ratedQueue[i+1:]...)
			return waiting, true
		}
	}

	q.ratedQueue = append(q.ratedQueue, req)
	return nil, false
}

// JoinCasual pairs the request with the oldest casual waiter
// unconditionally, or enqueues it when the queue is empty.
func (q *Queue) JoinCasual(req *MatchRequest) (opponent *MatchRequest, paired bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.casualQueue) > 0 {
		head := q.casualQueue[0]
		q.casualQueue = q.casualQueue[1:]
		return head, true
	}

	q.casualQueue = append(q.casualQueue, req)
	return nil, false
}

// AddInvite stores a private invite keyed by its invite address,
// overwriting any prior pending invite for the same address.
func (q *Queue) AddInvite(req *MatchRequest) error {
	if req.InviteAddress == "" {
		return ErrMissingInviteAddress
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.privateInvites[req.InviteAddress] = req
	return nil
}

// InviteByAddress returns the pending invite for an address, if any.
func (q *Queue) InviteByAddress(address string) (MatchRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.privateInvites[address]
	if !ok {
		return MatchRequest{}, false
	}
	return *req, true
}

// TakeInvite removes and returns the invite created by the given
// request id. The invite map is keyed by address, so this is a linear
// scan.
func (q *Queue) TakeInvite(requestID uuid.UUID) (*MatchRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for address, req := range q.privateInvites {
		if req.ID == requestID {
			delete(q.privateInvites, address)
			return req, true
		}
	}
	return nil, false
}

// Cancel removes the request id from whichever collection contains it,
// checked rated, then casual, then private. It reports whether anything
// was removed, so cancelling twice is safe and returns false the second
// time.
func (q *Queue) Cancel(requestID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, req := range q.ratedQueue {
		if req.ID == requestID {
			q.ratedQueue = append(q.ratedQueue[:i], q.ratedQueue[i+1:]...)
			return true
		}
	}

	for i, req := range q.casualQueue {
		if req.ID == requestID {
			q.casualQueue = append(q.casualQueue[:i], q.casualQueue[i+1:]...)
			return true
		}
	}

	for address, req := range q.privateInvites {
		if req.ID == requestID {
			delete(q.privateInvites, address)
			return true
		}
	}

	return false
}

// Status returns the 1-based queue position and estimated wait for a
// pending request.
func (q *Queue) Status(requestID uuid.UUID) (QueueStatus, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, req := range q.ratedQueue {
		if req.ID == requestID {
			return QueueStatus{
				RequestID:     requestID,
				Position:      i + 1,
				EstimatedWait: estimateWait(i, Rated),
				MatchType:     Rated,
			}, true
		}
	}

	for i, req := range q.casualQueue {
		if req.ID == requestID {
			return QueueStatus{
				RequestID:     requestID,
				Position:      i + 1,
				EstimatedWait: estimateWait(i, Casual),
				MatchType:     Casual,
			}, true
		}
	}

	for _, req := range q.privateInvites {
		if req.ID == requestID {
			return QueueStatus{
				RequestID:     requestID,
				Position:      1,
				EstimatedWait: DefaultEstimatedWait,
				MatchType:     Private,
			}, true
		}
	}

	return QueueStatus{}, false
}

// ExpandEloRanges widens MaxEloDiff for every waiting rated request
// proportionally to its elapsed wait time. Invoked by an external
// scheduler; it never reorders the queue and the effective range never
// decreases across repeated calls.
func (q *Queue) ExpandEloRanges() {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	for _, req := range q.ratedQueue {
		minutesWaiting := int(now.Sub(req.JoinTime) / time.Minute)
		if minutesWaiting > 0 {
			req.MaxEloDiff = req.effectiveMaxEloDiff() + minutesWaiting*EloRangeIncrementPerMinute
		}
	}
}

// Depth reports how many requests are pending for a match type.
func (q *Queue) Depth(t MatchType) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch t {
	case Rated:
		return len(q.ratedQueue)
	case Casual:
		return len(q.casualQueue)
	case Private:
		return len(q.privateInvites)
	}
	return 0
}

// estimateWait grows with how many requests sit ahead of the given
// zero-based index. Rated pools churn slower than casual ones.
func estimateWait(index int, t MatchType) time.Duration {
	switch t {
	case Rated:
		return min(time.Duration(30+index*15)*time.Second, 300*time.Second)
	case Casual:
		return min(time.Duration(15+index*10)*time.Second, 180*time.Second)
	default:
		return DefaultEstimatedWait
	}
}
