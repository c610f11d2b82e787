package practice

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seajay03/chel/internal/notify"
	"github.com/seajay03/chel/internal/roster"
	"github.com/seajay03/chel/internal/store"
)

var baseTime = time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) (*Engine, *store.Store, *notify.Memory) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "storage.json"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	gw := notify.NewMemory()
	ch := notify.Channels{Lineup: "lineup", General: "general", CoachLog: "coach-log"}
	e := New(st, gw, ch, zap.NewNop())
	e.now = func() time.Time { return baseTime }
	return e, st, gw
}

func mustCreate(t *testing.T, e *Engine) *roster.PracticeLobby {
	t.Helper()
	l, err := e.Create(context.Background(), "creator", "", 15)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestCreateValidatesWindow(t *testing.T) {
	e, _, _ := newEngine(t)
	ctx := context.Background()

	for _, minutes := range []int{0, -5, 121} {
		if _, err := e.Create(ctx, "creator", "x", minutes); !errors.Is(err, roster.ErrBadStartWindow) {
			t.Errorf("Create(%d) err = %v, want ErrBadStartWindow", minutes, err)
		}
	}
}

func TestCreateDefaults(t *testing.T) {
	e, _, gw := newEngine(t)
	l := mustCreate(t, e)

	if !strings.HasPrefix(l.ID, "PRAC-") {
		t.Fatalf("id = %q", l.ID)
	}
	if l.Opponent != "Random Online" {
		t.Fatalf("opponent = %q, want the default", l.Opponent)
	}
	if l.MessageRef == "" {
		t.Fatal("no lobby card recorded")
	}
	if posts := gw.Posts("lineup"); len(posts) != 1 {
		t.Fatalf("lobby card posts = %d", len(posts))
	}
}

func TestCreateTruncatesLongOpponent(t *testing.T) {
	e, _, _ := newEngine(t)
	long := strings.Repeat("x", 100)
	l, err := e.Create(context.Background(), "creator", long, 15)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Opponent) != 60 {
		t.Fatalf("opponent length = %d, want 60", len(l.Opponent))
	}
}

func TestClaimAndLeave(t *testing.T) {
	e, st, _ := newEngine(t)
	l := mustCreate(t, e)
	ctx := context.Background()

	if err := e.ClaimSlot(ctx, l.ID, roster.PosC, "alice"); err != nil {
		t.Fatal(err)
	}
	if err := e.ClaimSlot(ctx, l.ID, roster.PosC, "bob"); !errors.Is(err, roster.ErrSlotTaken) {
		t.Fatalf("double claim err = %v", err)
	}
	if err := e.ClaimSlot(ctx, l.ID, roster.PosG, "alice"); !errors.Is(err, roster.ErrAlreadyRostered) {
		t.Fatalf("second seat err = %v", err)
	}
	if err := e.ClaimSlot(ctx, l.ID, roster.PosUtil, "carl"); !errors.Is(err, roster.ErrUnknownPosition) {
		t.Fatalf("util claim err = %v", err)
	}

	if err := e.LeaveSlot(ctx, l.ID, "alice"); err != nil {
		t.Fatal(err)
	}
	got, err := st.GetPractice(l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Roster[roster.PosC] != "" {
		t.Fatal("slot not freed")
	}

	// Leaving while not seated is a quiet no-op.
	if err := e.LeaveSlot(ctx, l.ID, "stranger"); err != nil {
		t.Fatal(err)
	}
}

func TestSetStartMinutes(t *testing.T) {
	e, st, _ := newEngine(t)
	l := mustCreate(t, e)
	ctx := context.Background()

	if err := e.SetStartMinutes(ctx, l.ID, "stranger", false, 30); !errors.Is(err, roster.ErrNotAllowed) {
		t.Fatalf("stranger err = %v", err)
	}
	if err := e.SetStartMinutes(ctx, l.ID, "creator", false, 200); !errors.Is(err, roster.ErrBadStartWindow) {
		t.Fatalf("out of range err = %v", err)
	}
	if err := e.SetStartMinutes(ctx, l.ID, "stranger", true, 30); err != nil {
		t.Fatalf("manager rejected: %v", err)
	}

	got, err := st.GetPractice(l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.StartInMin != 30 {
		t.Fatalf("start = %d, want 30", got.StartInMin)
	}
}

func TestAnnounceDMsSeatedPlayers(t *testing.T) {
	e, st, gw := newEngine(t)
	l := mustCreate(t, e)
	ctx := context.Background()

	if err := e.ClaimSlot(ctx, l.ID, roster.PosC, "alice"); err != nil {
		t.Fatal(err)
	}
	if err := e.ClaimSlot(ctx, l.ID, roster.PosG, "gina"); err != nil {
		t.Fatal(err)
	}

	if err := e.Announce(ctx, l.ID, "creator", false); err != nil {
		t.Fatal(err)
	}
	if n := len(gw.Directs("")); n != 2 {
		t.Fatalf("announce DMs = %d, want 2", n)
	}
	got, err := st.GetPractice(l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Announced {
		t.Fatal("announced flag not set")
	}

	// Repeat announce re-sends.
	if err := e.Announce(ctx, l.ID, "creator", false); err != nil {
		t.Fatal(err)
	}
	if n := len(gw.Directs("")); n != 4 {
		t.Fatalf("repeat announce DMs = %d, want 4", n)
	}

	if err := e.Announce(ctx, l.ID, "stranger", false); !errors.Is(err, roster.ErrNotAllowed) {
		t.Fatalf("stranger announce err = %v", err)
	}
}

func TestCancelIsTerminal(t *testing.T) {
	e, st, _ := newEngine(t)
	l := mustCreate(t, e)
	ctx := context.Background()

	if err := e.Cancel(ctx, l.ID, "stranger", false); !errors.Is(err, roster.ErrNotAllowed) {
		t.Fatalf("stranger cancel err = %v", err)
	}
	if err := e.Cancel(ctx, l.ID, "creator", false); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetPractice(l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Canceled {
		t.Fatal("not canceled")
	}
	if err := e.ClaimSlot(ctx, l.ID, roster.PosC, "alice"); !errors.Is(err, roster.ErrLobbyCanceled) {
		t.Fatalf("claim after cancel err = %v", err)
	}
	if err := e.Announce(ctx, l.ID, "creator", false); !errors.Is(err, roster.ErrLobbyCanceled) {
		t.Fatalf("announce after cancel err = %v", err)
	}
}

func TestUnknownLobby(t *testing.T) {
	e, _, _ := newEngine(t)
	if err := e.ClaimSlot(context.Background(), "PRAC-0", roster.PosC, "alice"); !errors.Is(err, roster.ErrUnknownLobby) {
		t.Fatalf("err = %v", err)
	}
}
