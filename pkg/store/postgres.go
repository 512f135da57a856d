package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/chessarena/live-server/pkg/room"
)

// PostgresArchive persists final game records. It implements the
// registry's Archiver port.
type PostgresArchive struct {
	db *sql.DB
}

// NewPostgresArchive opens and verifies a Postgres connection.
func NewPostgresArchive(ctx context.Context, databaseURL string) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	return &PostgresArchive{db: db}, nil
}

// Close releases the connection pool.
func (a *PostgresArchive) Close() error {
	return a.db.Close()
}

// SaveGameResult upserts a completed game into game_results. Retrying
// failed writes is the caller's concern.
func (a *PostgresArchive) SaveGameResult(ctx context.Context, result room.CompletedGame) error {
	movesRaw, err := json.Marshal(result.Moves)
	if err != nil {
		return err
	}

	var whiteID, blackID string
	for _, p := range result.Players {
		if p.Color == "white" {
			whiteID = p.ID
		} else {
			blackID = p.ID
		}
	}

	q := `INSERT INTO game_results (
	        room_id, white_id, black_id, winner, reason, final_fen,
	        moves, initial_time_ms, increment_ms, delay_ms, completed_at
	      ) VALUES (
	        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
	      ) ON CONFLICT (room_id) DO UPDATE SET
	        winner=EXCLUDED.winner,
	        reason=EXCLUDED.reason,
	        final_fen=EXCLUDED.final_fen,
	        moves=EXCLUDED.moves,
	        completed_at=EXCLUDED.completed_at`

	_, err = a.db.ExecContext(ctx, q,
		result.RoomID,
		whiteID,
		blackID,
		string(result.Winner),
		result.Reason,
		result.FinalFEN,
		movesRaw,
		result.TimeControl.InitialTime.Milliseconds(),
		result.TimeControl.Increment.Milliseconds(),
		result.TimeControl.Delay.Milliseconds(),
		result.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save game result %s: %w", result.RoomID, err)
	}
	return nil
}
