// Package board wraps the rule engine behind a small delegate interface.
// Move legality is the rule engine's concern; the session core only
// needs deterministic application and a rejection signal.
package board

import (
	"fmt"

	"github.com/corentings/chess/v2"
)

// Outcome is the result of a game as seen by the rule engine.
type Outcome string

// Possible game outcomes.
const (
	OutcomeOngoing  Outcome = "*"
	OutcomeWhiteWon Outcome = "1-0"
	OutcomeBlackWon Outcome = "0-1"
	OutcomeDraw     Outcome = "1/2-1/2"
)

// Board is the opaque game-state delegate held by a room. The chess
// implementation below is the production one; tests may substitute a
// stub that accepts or rejects moves without rule checking.
type Board interface {
	// ApplyMove applies a move in long algebraic (UCI) notation,
	// returning an error if the rule engine rejects it.
	ApplyMove(notation string) error

	// FEN returns the current position encoding.
	FEN() string

	// Outcome reports the game result, OutcomeOngoing while play
	// continues.
	Outcome() Outcome
}

type chessBoard struct {
	game *chess.Game
}

// New creates a board at the standard starting position.
func New() Board {
	return &chessBoard{game: chess.NewGame()}
}

func (b *chessBoard) ApplyMove(notation string) error {
	if err := b.game.PushNotationMove(notation, chess.UCINotation{}, nil); err != nil {
		return fmt.Errorf("illegal move %q: %w", notation, err)
	}
	return nil
}

func (b *chessBoard) FEN() string {
	return b.game.FEN()
}

func (b *chessBoard) Outcome() Outcome {
	switch b.game.Outcome() {
	case chess.WhiteWon:
		return OutcomeWhiteWon
	case chess.BlackWon:
		return OutcomeBlackWon
	case chess.Draw:
		return OutcomeDraw
	default:
		return OutcomeOngoing
	}
}
