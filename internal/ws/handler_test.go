package ws

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seajay03/chel/internal/claims"
	"github.com/seajay03/chel/internal/lifecycle"
	"github.com/seajay03/chel/internal/notify"
	"github.com/seajay03/chel/internal/quotes"
	"github.com/seajay03/chel/internal/roster"
	"github.com/seajay03/chel/internal/store"
	"github.com/seajay03/chel/internal/types"
)

func newEngine(t *testing.T) (*claims.Engine, string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "storage.json"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	gw := notify.NewMemory()
	ch := notify.Channels{Lineup: "lineup", General: "general", CoachLog: "coach-log"}
	machine := lifecycle.New(st, gw, ch, &quotes.Book{}, time.UTC, false, zap.NewNop())
	g := roster.NewGame(time.Now().Add(12*time.Hour), "Rivals")
	if err := st.AddGame(g); err != nil {
		t.Fatal(err)
	}
	return claims.New(st, gw, machine, 5*time.Minute, zap.NewNop()), g.ID
}

func TestDispatchClaimConfirmFlow(t *testing.T) {
	engine, gameID := newEngine(t)
	ctx := context.Background()

	resp := dispatch(ctx, engine, types.ClientMessage{
		Type: "ClaimSlot", GameID: gameID, Position: "G", UserID: "alice",
	})
	if resp.Type != "ClaimPending" || resp.Token == "" {
		t.Fatalf("claim resp = %+v", resp)
	}

	resp = dispatch(ctx, engine, types.ClientMessage{
		Type: "ConfirmClaim", Token: resp.Token, UserID: "alice",
	})
	if resp.Type != "Confirmed" || resp.Position != "G" || resp.GameID != gameID {
		t.Fatalf("confirm resp = %+v", resp)
	}
}

func TestDispatchRaceLoserGetsFriendlyError(t *testing.T) {
	engine, gameID := newEngine(t)
	ctx := context.Background()

	a := dispatch(ctx, engine, types.ClientMessage{Type: "ClaimSlot", GameID: gameID, Position: "G", UserID: "alice"})
	b := dispatch(ctx, engine, types.ClientMessage{Type: "ClaimSlot", GameID: gameID, Position: "G", UserID: "bob"})

	if r := dispatch(ctx, engine, types.ClientMessage{Type: "ConfirmClaim", Token: a.Token, UserID: "alice"}); r.Type != "Confirmed" {
		t.Fatalf("winner resp = %+v", r)
	}
	r := dispatch(ctx, engine, types.ClientMessage{Type: "ConfirmClaim", Token: b.Token, UserID: "bob"})
	if r.Type != "Error" || r.Error != "too late — already filled" {
		t.Fatalf("loser resp = %+v", r)
	}
}

func TestDispatchValidation(t *testing.T) {
	engine, gameID := newEngine(t)
	ctx := context.Background()

	cases := []struct {
		name string
		msg  types.ClientMessage
	}{
		{"bad position", types.ClientMessage{Type: "ClaimSlot", GameID: gameID, Position: "XX", UserID: "alice"}},
		{"unknown token", types.ClientMessage{Type: "ConfirmClaim", Token: "nope", UserID: "alice"}},
		{"nothing to affirm", types.ClientMessage{Type: "Affirm", UserID: "alice"}},
		{"unknown type", types.ClientMessage{Type: "Bogus"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if r := dispatch(ctx, engine, tc.msg); r.Type != "Error" || r.Error == "" {
				t.Fatalf("resp = %+v, want an error", r)
			}
		})
	}
}

func TestRandIDLengthAndCharset(t *testing.T) {
	id := randID(6)
	if len(id) != 6 {
		t.Fatalf("len = %d", len(id))
	}
	if randID(6) == id && randID(6) == id {
		t.Fatal("ids look fixed")
	}
}
