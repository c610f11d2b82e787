// Package scheduler is the periodic driver: one fixed-interval tick walks
// every active game sequentially and lets the lifecycle machine fire due
// stages. Games are evaluated under their own critical sections; there is no
// global lock and a slow tick never overlaps itself.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seajay03/chel/internal/roster"
	"github.com/seajay03/chel/internal/store"
)

// DefaultTick matches the original cadence.
const DefaultTick = 60 * time.Second

// Evaluator fires the due stages for one game.
type Evaluator interface {
	Evaluate(ctx context.Context, gameID string, now time.Time) error
}

// Sweeper drops expired claim intents.
type Sweeper interface {
	Sweep(now time.Time) int
}

type Scheduler struct {
	store   *store.Store
	machine Evaluator
	claims  Sweeper
	log     *zap.Logger
	tick    time.Duration
	now     func() time.Time
}

func New(st *store.Store, machine Evaluator, claims Sweeper, tick time.Duration, log *zap.Logger) *Scheduler {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Scheduler{store: st, machine: machine, claims: claims, log: log, tick: tick, now: time.Now}
}

// Run ticks until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.Pass(ctx)
		}
	}
}

// Pass is one full evaluation sweep. Also the target of the operator's
// force-check command.
func (s *Scheduler) Pass(ctx context.Context) {
	now := s.now()
	for _, id := range s.store.GameIDs() {
		g, err := s.store.GetGame(id)
		if err != nil {
			continue // deleted mid-pass
		}
		if g.Dead() && g.Status == roster.StatusPast {
			continue
		}
		if err := s.machine.Evaluate(ctx, id, now); err != nil {
			// Persistence trouble: the stage stays unfired and retries
			// next tick. Loud on purpose, this threatens durability.
			s.log.Error("scheduler tick failed for game",
				zap.String("game", id), zap.Error(err))
		}
	}
	if s.claims != nil {
		if dropped := s.claims.Sweep(now); dropped > 0 {
			s.log.Info("expired claim intents dropped", zap.Int("count", dropped))
		}
	}
}
