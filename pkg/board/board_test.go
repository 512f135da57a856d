package board

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMoveUpdatesPosition(t *testing.T) {
	b := New()
	start := b.FEN()

	require.NoError(t, b.ApplyMove("e2e4"))
	assert.NotEqual(t, start, b.FEN())
	assert.Equal(t, OutcomeOngoing, b.Outcome())
}

func TestApplyMoveRejectsIllegalMove(t *testing.T) {
	b := New()
	before := b.FEN()

	err := b.ApplyMove("e2e5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal move")
	assert.Equal(t, before, b.FEN())
}

func TestOutcomeDetectsCheckmate(t *testing.T) {
	b := New()

	// Fool's mate.
	for _, m := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		require.NoError(t, b.ApplyMove(m))
	}

	assert.Equal(t, OutcomeBlackWon, b.Outcome())
	assert.True(t, strings.Contains(b.FEN(), " w "))
}
