package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seajay03/chel/internal/claims"
	"github.com/seajay03/chel/internal/config"
	"github.com/seajay03/chel/internal/httpapi"
	"github.com/seajay03/chel/internal/hub"
	"github.com/seajay03/chel/internal/lifecycle"
	"github.com/seajay03/chel/internal/notify"
	"github.com/seajay03/chel/internal/practice"
	"github.com/seajay03/chel/internal/quotes"
	"github.com/seajay03/chel/internal/scheduler"
	"github.com/seajay03/chel/internal/store"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.StoragePath, log.Named("store"))
	if err != nil {
		log.Fatal("open storage", zap.Error(err))
	}

	qb, err := quotes.Load(cfg.CoachismsPath)
	if err != nil {
		log.Warn("coachisms unavailable, using defaults", zap.Error(err))
		qb = &quotes.Book{}
	}

	channels := notify.Channels{
		Lineup:   cfg.LineupChannel,
		General:  cfg.GeneralChannel,
		CoachLog: cfg.CoachLogChannel,
	}

	// No platform adapter wired in this build; deliveries go to the log.
	gw := notify.NewLogGateway(log.Named("gateway"))

	machine := lifecycle.New(st, gw, channels, qb, cfg.Location, cfg.PingEveryone, log.Named("lifecycle"))
	engine := claims.New(st, gw, machine, cfg.ClaimWindow, log.Named("claims"))
	prac := practice.New(st, gw, channels, log.Named("practice"))
	sched := scheduler.New(st, machine, engine, cfg.TickInterval, log.Named("scheduler"))

	h := hub.New(ctx, st)
	st.OnCommit(func(version int) {
		// Non-blocking: a dropped publish just means the next commit's
		// snapshot carries the change.
		select {
		case h.Inbox() <- hub.Publish{Version: version}:
		default:
		}
	})

	api := &httpapi.API{
		Machine:  machine,
		Claims:   engine,
		Practice: prac,
		Sched:    sched,
		Store:    st,
		Loc:      cfg.Location,
		Log:      log.Named("http"),
	}
	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.SetupRoutes(api, h, engine)}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := sched.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", zap.Error(err))
	}
	if err := st.Flush(); err != nil {
		log.Error("final flush failed", zap.Error(err))
	}
}
