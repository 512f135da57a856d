// Package main is the entry point of the application
package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chessarena/live-server/internal/auth"
	"github.com/chessarena/live-server/pkg/clock"
	"github.com/chessarena/live-server/pkg/config"
	"github.com/chessarena/live-server/pkg/events"
	"github.com/chessarena/live-server/pkg/matchmaking"
	"github.com/chessarena/live-server/pkg/messages"
	"github.com/chessarena/live-server/pkg/metrics"
	"github.com/chessarena/live-server/pkg/room"
	"github.com/chessarena/live-server/pkg/server"
	"github.com/chessarena/live-server/pkg/store"
)

// application encapsulates global dependencies
type application struct {
	Auth      *auth.APIKeyAuth
	Logger    *zap.Logger
	Config    *config.Config
	Publisher *events.Publisher
	Metrics   *metrics.Metrics
	Hub       *server.Hub
	Registry  *room.Registry
	Server    *http.Server

	upgrader websocket.Upgrader

	StartTime time.Time
}

// liveStore is the snapshot-side persistence surface the wiring needs.
type liveStore interface {
	room.TimeControlLoader
	SaveTimeControl(ctx context.Context, gameID string, tc clock.TimeControl) error
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.String("port", "", "server port (overrides config)")
	flag.Parse()

	// A missing .env file is fine; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if *debug {
		cfg.Debug = true
	}
	if *port != "" {
		cfg.Port = *port
	}

	// Initialize logger
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	// Initialize event publisher and metrics
	publisher := events.NewPublisher()
	m := metrics.New()

	// Persistence collaborators: Redis for live snapshots and
	// time-control resumption, Postgres for the final game archive.
	// Both fall back to the in-memory store.
	memory := store.NewInMemoryStore()

	var live liveStore = memory
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		redisStore, err = store.NewRedisStore(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisStore.Close()
		live = redisStore
	}

	var archiver room.Archiver = memory
	if cfg.DatabaseURL != "" {
		archive, err := store.NewPostgresArchive(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer archive.Close()
		archiver = archive
	}

	// Initialize session registry and matchmaking service
	registry := room.NewRegistry(cfg.TimeControl(), archiver, live, publisher, logger)
	matchmaker := matchmaking.NewService(registry, publisher, logger)

	wireEventHandlers(publisher, registry, matchmaker, live, redisStore, m, logger)

	hub := server.NewHub(matchmaker, registry, m, logger)
	go hub.Run()

	app := &application{
		Auth:      auth.NewAPIKeyAuth(cfg.APIKeys),
		Logger:    logger,
		Config:    cfg,
		Publisher: publisher,
		Metrics:   m,
		Hub:       hub,
		Registry:  registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return cfg.FrontendOrigin == r.Header.Get("Origin")
			},
		},
		StartTime: time.Now(),
	}

	// Maintenance jobs: ELO range widening and the room timeout sweep.
	scheduler, err := app.startScheduler(matchmaker, registry)
	if err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer func() { _ = scheduler.Shutdown() }()

	if err := app.serve(); err != nil {
		logger.Fatal("error serving", zap.Error(err))
	}
}

// wireEventHandlers connects room lifecycle events to persistence,
// matchmaking bookkeeping and metrics.
func wireEventHandlers(
	publisher *events.Publisher,
	registry *room.Registry,
	matchmaker *matchmaking.Service,
	live liveStore,
	redisStore *store.RedisStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) {
	publisher.Subscribe(events.EventRoomCreated, func(event events.Event) {
		m.ActiveRooms.Set(float64(registry.ActiveRooms()))

		tc, ok := event.Payload.(clock.TimeControl)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := live.SaveTimeControl(ctx, event.RoomID, tc); err != nil {
			logger.Warn("failed to persist time control",
				zap.String("room_id", event.RoomID), zap.Error(err))
		}
	})

	publisher.Subscribe(events.EventMoveProcessed, func(event events.Event) {
		if redisStore == nil {
			return
		}
		made, ok := event.Payload.(messages.MoveMadePayload)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := redisStore.SaveSnapshot(ctx, event.RoomID, made.GameState); err != nil {
			logger.Warn("failed to persist room snapshot",
				zap.String("room_id", event.RoomID), zap.Error(err))
		}
	})

	publisher.Subscribe(events.EventGameCompleted, func(event events.Event) {
		result, ok := event.Payload.(room.CompletedGame)
		if !ok {
			return
		}
		winner := string(result.Winner)
		if winner == "" {
			winner = "draw"
		}
		m.GamesCompleted.WithLabelValues(winner).Inc()
	})

	publisher.Subscribe(events.EventRoomRemoved, func(event events.Event) {
		m.ActiveRooms.Set(float64(registry.ActiveRooms()))

		// Matched rooms reuse the match id, so the active-match table
		// can be released here.
		if matchID, err := uuid.Parse(event.RoomID); err == nil {
			matchmaker.ReleaseMatch(matchID)
		}

		if redisStore != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := redisStore.DeleteSnapshot(ctx, event.RoomID); err != nil {
				logger.Warn("failed to drop room snapshot",
					zap.String("room_id", event.RoomID), zap.Error(err))
			}
		}
	})
}

func initLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	return logger
}

// Shutdown cleans up resources
func (app *application) Shutdown() {
	if app.Hub != nil {
		app.Hub.Shutdown()
	}

	app.Logger.Info("All components shut down successfully")
}
