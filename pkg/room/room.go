// Package room owns the live, in-memory state of ongoing matches: one
// Room per game with its roster, clocks and move log, and a Registry
// mapping room ids to rooms. Each room is an isolated lock domain so
// operations on one game never block another.
package room

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chessarena/live-server/internal/color"
	"github.com/chessarena/live-server/pkg/board"
	"github.com/chessarena/live-server/pkg/clock"
	"github.com/chessarena/live-server/pkg/events"
	"github.com/chessarena/live-server/pkg/messages"
)

// Status is a room's lifecycle state.
type Status string

// Room lifecycle states.
const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAborted    Status = "aborted"
)

// Terminal reports whether no further play can happen in this state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted
}

// Player is one roster entry with its assigned color.
type Player struct {
	ID    string
	Name  string
	Color color.Color
}

// CompletedGame is the final record handed to the persistence layer
// when a room reaches a terminal state.
type CompletedGame struct {
	RoomID      string
	Players     []Player
	Winner      color.Color
	Reason      string
	FinalFEN    string
	Moves       []messages.MoveRecord
	TimeControl clock.TimeControl
	CompletedAt time.Time
}

// subscriberBufferSize bounds each subscriber's undelivered backlog.
// A full buffer drops that subscriber's oldest message; the game-state
// mutation path never blocks on a slow reader.
const subscriberBufferSize = 100

type subscriber struct {
	ch chan messages.OutboundMessage
}

// enqueue delivers without blocking, evicting the oldest undelivered
// message when the buffer is full.
func (s *subscriber) enqueue(msg messages.OutboundMessage) {
	for {
		select {
		case s.ch <- msg:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// Room is one active game session. All mutable state is guarded by the
// room's own mutex; broadcasts are enqueued inside the same critical
// section that produced them, so subscribers observe mutations in
// order.
type Room struct {
	ID string

	mu          sync.Mutex
	players     []Player
	roster      []Player // seated players at game start; survives departures
	timeControl clock.TimeControl
	whiteClock  *clock.PlayerClock
	blackClock  *clock.PlayerClock
	moveLog     []messages.MoveRecord
	status      Status
	currentTurn color.Color
	board       board.Board
	winner      color.Color
	endReason   string

	subscribers map[uuid.UUID]*subscriber

	publisher *events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func newRoom(id string, tc clock.TimeControl, publisher *events.Publisher, logger *zap.Logger) *Room {
	return &Room{
		ID:          id,
		timeControl: tc,
		status:      StatusWaiting,
		currentTurn: color.White,
		subscribers: make(map[uuid.UUID]*subscriber),
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// Subscribe registers a listener for this room's broadcasts and
// returns its receive channel. The channel is closed on Unsubscribe.
func (r *Room) Subscribe(id uuid.UUID) <-chan messages.OutboundMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub := &subscriber{ch: make(chan messages.OutboundMessage, subscriberBufferSize)}
	r.subscribers[id] = sub
	return sub.ch
}

// Unsubscribe removes a listener and closes its channel.
func (r *Room) Unsubscribe(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.subscribers[id]; ok {
		delete(r.subscribers, id)
		close(sub.ch)
	}
}

// broadcastLocked fans a message out to every subscriber. Callers hold
// the room lock; subscribers' own tasks perform the blocking network
// writes after the lock is released.
func (r *Room) broadcastLocked(msg messages.OutboundMessage) {
	for _, sub := range r.subscribers {
		sub.enqueue(msg)
	}
}

// Join adds a player to the roster. The first player is assigned White,
// the second Black; the second join also transitions the room to
// InProgress, initializes both clocks from the time control, and starts
// White's clock so exactly one clock runs for the side to move.
func (r *Room) Join(playerID, playerName string) (messages.RoomJoinedPayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) >= 2 {
		return messages.RoomJoinedPayload{}, ErrRoomFull
	}
	for _, p := range r.players {
		if p.ID == playerID {
			return messages.RoomJoinedPayload{}, ErrAlreadyInRoom
		}
	}

	if playerName == "" {
		playerName = "Player " + playerID
	}

	assigned := color.White
	if len(r.players) == 1 {
		assigned = color.Black
	}
	r.players = append(r.players, Player{ID: playerID, Name: playerName, Color: assigned})

	if len(r.players) == 2 {
		r.roster = append([]Player(nil), r.players...)
		r.whiteClock = clock.NewPlayerClock(r.timeControl.InitialTime)
		r.blackClock = clock.NewPlayerClock(r.timeControl.InitialTime)
		r.board = board.New()
		r.status = StatusInProgress
		r.currentTurn = color.White
		r.whiteClock.Start()

		r.logger.Info("game started",
			zap.String("room_id", r.ID),
			zap.String("white", r.players[0].ID),
			zap.String("black", r.players[1].ID))
	}

	payload := messages.RoomJoinedPayload{
		RoomID:   r.ID,
		PlayerID: playerID,
		Players:  r.rosterLocked(),
	}
	if r.status != StatusWaiting {
		state := r.stateLocked()
		payload.GameState = &state
	}

	r.broadcastLocked(messages.OutboundMessage{Event: messages.EventRoomJoined, Payload: payload})
	return payload, nil
}

// SendMove applies a move by the given player. On success the mover's
// clock is charged (delay credited, then stopped, then incremented) and
// the opponent's clock is started, keeping exactly one clock running
// for the side to move. If the mover's own clock is already exhausted
// the move is rejected and the game completes in the opponent's favor.
func (r *Room) SendMove(playerID, notation string) (messages.MoveMadePayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.playerLocked(playerID)
	if !ok {
		return messages.MoveMadePayload{}, ErrPlayerNotInRoom
	}
	if r.status == StatusWaiting {
		return messages.MoveMadePayload{}, ErrGameNotStarted
	}
	if r.status.Terminal() {
		return messages.MoveMadePayload{}, ErrGameOver
	}
	if len(r.players) < 2 {
		panic("room in progress with incomplete roster")
	}
	if player.Color != r.currentTurn {
		return messages.MoveMadePayload{}, ErrNotYourTurn
	}

	mover, opponent := r.clockLocked(player.Color), r.clockLocked(player.Color.Opp())

	// Lazy timeout detection: the flag may have fallen while the mover
	// was thinking.
	if mover.LiveRemaining() == 0 {
		mover.Stop()
		r.completeLocked(player.Color.Opp(), winOnTimeReason(player.Color.Opp()))
		return messages.MoveMadePayload{}, ErrOutOfTime
	}

	if err := r.board.ApplyMove(notation); err != nil {
		return messages.MoveMadePayload{}, err
	}

	// Delay is credited while the clock still runs, the elapsed move
	// time is charged on stop, and the Fischer increment lands after.
	mover.ApplyDelay(r.timeControl.Delay)
	mover.Stop()
	mover.ApplyIncrement(r.timeControl.Increment)
	opponent.Start()

	r.moveLog = append(r.moveLog, messages.MoveRecord{
		PlayerID:  playerID,
		Notation:  notation,
		Timestamp: r.now(),
	})
	r.currentTurn = r.currentTurn.Opp()

	payload := messages.MoveMadePayload{
		RoomID:       r.ID,
		PlayerID:     playerID,
		MoveNotation: notation,
		GameState:    r.stateLocked(),
	}
	r.broadcastLocked(messages.OutboundMessage{Event: messages.EventMoveMade, Payload: payload})

	r.publisher.Publish(events.Event{
		Type:    events.EventMoveProcessed,
		RoomID:  r.ID,
		Payload: payload,
	})

	// The rule engine may have decided the game with this move.
	switch r.board.Outcome() {
	case board.OutcomeWhiteWon:
		r.completeLocked(color.White, "White wins")
	case board.OutcomeBlackWon:
		r.completeLocked(color.Black, "Black wins")
	case board.OutcomeDraw:
		r.completeLocked("", "Draw")
	}

	return payload, nil
}

// Resign concedes the game to the opponent.
func (r *Room) Resign(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.playerLocked(playerID)
	if !ok {
		return ErrPlayerNotInRoom
	}
	if r.status == StatusWaiting {
		return ErrGameNotStarted
	}
	if r.status.Terminal() {
		return ErrGameOver
	}

	winner := player.Color.Opp()
	r.completeLocked(winner, sideName(winner)+" wins by resignation")
	return nil
}

// Leave removes a player and reports whether the roster is now empty,
// in which case the registry garbage-collects the room. An in-progress
// game whose roster empties is aborted.
func (r *Room) Leave(playerID string) (empty bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, ErrPlayerNotInRoom
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)

	r.broadcastLocked(messages.OutboundMessage{
		Event:   messages.EventPlayerLeft,
		Payload: messages.PlayerLeftPayload{RoomID: r.ID, PlayerID: playerID},
	})

	if len(r.players) == 0 {
		if r.status == StatusInProgress {
			r.stopClocksLocked()
			r.status = StatusAborted
			r.endReason = "all players left"
		}
		return true, nil
	}
	return false, nil
}

// CheckTimeOut ends the game when the running clock's live time is
// exhausted. It is the sweep-side counterpart of the on-move check;
// both converge on the same idempotent termination transition. The
// winner is returned when the call ended the game.
func (r *Room) CheckTimeOut() (color.Color, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusInProgress {
		return "", false
	}

	running := r.clockLocked(r.currentTurn)
	if running == nil || running.LiveRemaining() > 0 {
		return "", false
	}

	running.Stop()
	winner := r.currentTurn.Opp()
	r.completeLocked(winner, winOnTimeReason(winner))
	return winner, true
}

// GameLog returns the ordered move list. Pure read.
func (r *Room) GameLog() []messages.MoveRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := make([]messages.MoveRecord, len(r.moveLog))
	copy(log, r.moveLog)
	return log
}

// Status returns the room's lifecycle state.
func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Players returns a snapshot of the roster.
func (r *Room) Players() []Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make([]Player, len(r.players))
	copy(players, r.players)
	return players
}

// CurrentTurn returns the side to move.
func (r *Room) CurrentTurn() color.Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentTurn
}

// ClockRunning reports whether the given side's clock is running. Both
// are reported stopped before the game starts.
func (r *Room) ClockRunning(c color.Color) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cl := r.clockLocked(c)
	return cl != nil && cl.Running()
}

// LiveRemaining returns the given side's live remaining time.
func (r *Room) LiveRemaining(c color.Color) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	cl := r.clockLocked(c)
	if cl == nil {
		return r.timeControl.InitialTime
	}
	return cl.LiveRemaining()
}

// completeLocked drives the terminal transition exactly once: stops the
// clocks, broadcasts GAME_OVER, and publishes the completed game for
// the persistence hand-off. Safe to reach from the move path, the
// resignation path and the timeout sweep in any order.
func (r *Room) completeLocked(winner color.Color, reason string) {
	if r.status.Terminal() {
		return
	}

	r.stopClocksLocked()
	r.status = StatusCompleted
	r.winner = winner
	r.endReason = reason

	r.broadcastLocked(messages.OutboundMessage{
		Event:   messages.EventGameOver,
		Payload: messages.GameOverPayload{RoomID: r.ID, Winner: winner, Reason: reason},
	})

	r.publisher.Publish(events.Event{
		Type:    events.EventGameCompleted,
		RoomID:  r.ID,
		Payload: r.completedGameLocked(),
	})

	r.logger.Info("game completed",
		zap.String("room_id", r.ID),
		zap.String("winner", string(winner)),
		zap.String("reason", reason))
}

func (r *Room) completedGameLocked() CompletedGame {
	// The seated roster is used so games aborted by departures still
	// archive both players.
	players := r.roster
	if len(players) == 0 {
		players = r.players
	}

	result := CompletedGame{
		RoomID:      r.ID,
		Players:     append([]Player(nil), players...),
		Winner:      r.winner,
		Reason:      r.endReason,
		Moves:       append([]messages.MoveRecord(nil), r.moveLog...),
		TimeControl: r.timeControl,
		CompletedAt: r.now(),
	}
	if r.board != nil {
		result.FinalFEN = r.board.FEN()
	}
	return result
}

func (r *Room) stopClocksLocked() {
	if r.whiteClock != nil {
		r.whiteClock.Stop()
	}
	if r.blackClock != nil {
		r.blackClock.Stop()
	}
}

func (r *Room) playerLocked(playerID string) (Player, bool) {
	for _, p := range r.players {
		if p.ID == playerID {
			return p, true
		}
	}
	return Player{}, false
}

func (r *Room) clockLocked(c color.Color) *clock.PlayerClock {
	if c == color.White {
		return r.whiteClock
	}
	return r.blackClock
}

func (r *Room) rosterLocked() []messages.RoomPlayer {
	roster := make([]messages.RoomPlayer, 0, len(r.players))
	for _, p := range r.players {
		roster = append(roster, messages.RoomPlayer{ID: p.ID, Name: p.Name, Color: p.Color})
	}
	return roster
}

func (r *Room) stateLocked() messages.GameState {
	state := messages.GameState{
		Status:      string(r.status),
		CurrentTurn: r.currentTurn,
	}
	if r.board != nil {
		state.FEN = r.board.FEN()
	}
	if r.whiteClock != nil {
		white := r.whiteClock.LiveRemaining()
		black := r.blackClock.LiveRemaining()
		state.WhiteTimeMs = white.Milliseconds()
		state.BlackTimeMs = black.Milliseconds()
		state.WhiteTimeText = clock.FormatRemaining(white)
		state.BlackTimeText = clock.FormatRemaining(black)
	}
	return state
}

func winOnTimeReason(winner color.Color) string {
	return sideName(winner) + " wins on time"
}

func sideName(c color.Color) string {
	if c == color.White {
		return "White"
	}
	return "Black"
}
