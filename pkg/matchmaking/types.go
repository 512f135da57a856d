package matchmaking

import (
	"time"

	"github.com/google/uuid"
)

// MatchType distinguishes the three pairing pools.
type MatchType string

// Supported match types.
const (
	Rated   MatchType = "rated"
	Casual  MatchType = "casual"
	Private MatchType = "private"
)

// Matchmaking constants.
const (
	// DefaultMaxEloDiff bounds rated pairings when a request does not
	// ask for a tighter or wider range.
	DefaultMaxEloDiff = 200

	// EloRangeIncrementPerMinute widens a waiting rated request's
	// acceptable range for every full minute spent in the queue.
	EloRangeIncrementPerMinute = 50

	// DefaultEstimatedWait is reported for private invites, whose wait
	// is bounded by when the invited party accepts, not by a formula.
	DefaultEstimatedWait = 60 * time.Second
)

// PlayerSummary is a read-only snapshot of a player supplied by the
// caller; the matchmaking core never mutates it.
type PlayerSummary struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Elo         int       `json:"elo"`
	JoinTime    time.Time `json:"join_time"`
}

// MatchRequest is a pending ask to be paired. It is immutable except
// MaxEloDiff, which the queue widens over time. A zero MaxEloDiff means
// the default range.
type MatchRequest struct {
	ID            uuid.UUID     `json:"id"`
	Player        PlayerSummary `json:"player"`
	MatchType     MatchType     `json:"match_type"`
	MaxEloDiff    int           `json:"max_elo_diff,omitempty"`
	InviteAddress string        `json:"invite_address,omitempty"`
	JoinTime      time.Time     `json:"join_time"`
}

// effectiveMaxEloDiff is the range actually used for pairing; it never
// narrows below the default.
func (r *MatchRequest) effectiveMaxEloDiff() int {
	if r.MaxEloDiff > DefaultMaxEloDiff {
		return r.MaxEloDiff
	}
	return DefaultMaxEloDiff
}

// Match records a successful pairing. Created exactly once, immutable,
// held in the service's active-match table until the room is torn down.
type Match struct {
	ID        uuid.UUID     `json:"id"`
	Player1   PlayerSummary `json:"player1"`
	Player2   PlayerSummary `json:"player2"`
	MatchType MatchType     `json:"match_type"`
	CreatedAt time.Time     `json:"created_at"`
}

// QueueStatus describes where a pending request sits.
type QueueStatus struct {
	RequestID     uuid.UUID     `json:"request_id"`
	Position      int           `json:"position"` // 1-based
	EstimatedWait time.Duration `json:"estimated_wait"`
	MatchType     MatchType     `json:"match_type"`
}

// Response statuses reported to the caller.
const (
	StatusMatchFound    = "Match found"
	StatusAddedToQueue  = "Added to queue"
	StatusWaitingInvite = "Waiting for invited player"
	StatusMatchCreated  = "Match created"
)

// Response is the outcome of a join or accept operation. MatchID and
// RoomID are set only when a pairing happened.
type Response struct {
	Status    string     `json:"status"`
	RequestID uuid.UUID  `json:"request_id"`
	MatchID   *uuid.UUID `json:"match_id,omitempty"`
	RoomID    string     `json:"room_id,omitempty"`
}
