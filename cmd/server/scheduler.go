package main

import (
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/chessarena/live-server/pkg/matchmaking"
	"github.com/chessarena/live-server/pkg/room"
)

// startScheduler runs the periodic maintenance jobs: widening the ELO
// range of waiting rated requests and sweeping rooms for flag falls.
func (app *application) startScheduler(
	matchmaker *matchmaking.Service,
	registry *room.Registry,
) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(app.Config.EloExpandInterval()),
		gocron.NewTask(func() {
			matchmaker.ExpandEloRanges()
		}),
	)
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(app.Config.TimeoutSweepInterval()),
		gocron.NewTask(func() {
			if flagged := registry.SweepTimeouts(); flagged > 0 {
				app.Logger.Info("timeout sweep flagged games",
					zap.Int("count", flagged))
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
