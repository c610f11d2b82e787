package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seajay03/chel/internal/roster"
	"github.com/seajay03/chel/internal/store"
)

type fakeEvaluator struct {
	seen []string
	fail map[string]bool
}

func (f *fakeEvaluator) Evaluate(_ context.Context, gameID string, _ time.Time) error {
	f.seen = append(f.seen, gameID)
	if f.fail[gameID] {
		return errors.New("boom")
	}
	return nil
}

type fakeSweeper struct {
	calls int
}

func (f *fakeSweeper) Sweep(time.Time) int {
	f.calls++
	return 1
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "storage.json"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func addGameAt(t *testing.T, st *store.Store, at time.Time) string {
	t.Helper()
	g := roster.NewGame(at, "Rivals")
	if err := st.AddGame(g); err != nil {
		t.Fatal(err)
	}
	return g.ID
}

func TestPassEvaluatesActiveGamesInOrder(t *testing.T) {
	st := newStore(t)
	late := addGameAt(t, st, time.Date(2025, 9, 21, 19, 0, 0, 0, time.UTC))
	early := addGameAt(t, st, time.Date(2025, 9, 20, 19, 0, 0, 0, time.UTC))

	ev := &fakeEvaluator{}
	sw := &fakeSweeper{}
	s := New(st, ev, sw, time.Minute, zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC) }

	s.Pass(context.Background())

	if len(ev.seen) != 2 || ev.seen[0] != early || ev.seen[1] != late {
		t.Fatalf("evaluated %v, want [%s %s]", ev.seen, early, late)
	}
	if sw.calls != 1 {
		t.Fatalf("sweep calls = %d", sw.calls)
	}
}

func TestPassSkipsSettledPastGames(t *testing.T) {
	st := newStore(t)
	past := addGameAt(t, st, time.Date(2025, 9, 19, 19, 0, 0, 0, time.UTC))
	if err := st.UpdateGame(past, func(g *roster.Game) error {
		g.Status = roster.StatusPast
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	active := addGameAt(t, st, time.Date(2025, 9, 21, 19, 0, 0, 0, time.UTC))

	ev := &fakeEvaluator{}
	s := New(st, ev, nil, time.Minute, zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC) }

	s.Pass(context.Background())

	if len(ev.seen) != 1 || ev.seen[0] != active {
		t.Fatalf("evaluated %v, want only %s", ev.seen, active)
	}
}

func TestPassStillVisitsCanceledUpcomingGames(t *testing.T) {
	// A canceled game stays on the schedule until its time passes, so the
	// past transition can still settle it.
	st := newStore(t)
	id := addGameAt(t, st, time.Date(2025, 9, 21, 19, 0, 0, 0, time.UTC))
	if err := st.UpdateGame(id, func(g *roster.Game) error {
		g.Canceled = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	ev := &fakeEvaluator{}
	s := New(st, ev, nil, time.Minute, zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC) }

	s.Pass(context.Background())
	if len(ev.seen) != 1 {
		t.Fatalf("evaluated %v, want the canceled game visited", ev.seen)
	}
}

func TestPassContinuesAfterEvaluatorError(t *testing.T) {
	st := newStore(t)
	first := addGameAt(t, st, time.Date(2025, 9, 20, 19, 0, 0, 0, time.UTC))
	second := addGameAt(t, st, time.Date(2025, 9, 21, 19, 0, 0, 0, time.UTC))

	ev := &fakeEvaluator{fail: map[string]bool{first: true}}
	s := New(st, ev, nil, time.Minute, zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC) }

	s.Pass(context.Background())

	if len(ev.seen) != 2 || ev.seen[1] != second {
		t.Fatalf("evaluated %v, want both games despite the error", ev.seen)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	st := newStore(t)
	s := New(st, &fakeEvaluator{}, nil, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
