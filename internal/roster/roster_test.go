package roster

import (
	"testing"
	"time"
)

func TestNewGamePopulatesEverySlot(t *testing.T) {
	at := time.Date(2025, 9, 20, 19, 0, 0, 0, time.UTC)
	g := NewGame(at, "Rivals")

	if g.Status != StatusUpcoming {
		t.Fatalf("status = %q, want upcoming", g.Status)
	}
	if g.ID != "2025-09-20T19:00:00Z" {
		t.Fatalf("id = %q", g.ID)
	}
	for _, p := range AllPositions {
		if v, ok := g.Roster[p]; !ok || v != "" {
			t.Errorf("roster[%s] = %q ok=%v, want present and empty", p, v, ok)
		}
		if _, ok := g.Confirmed[p]; !ok {
			t.Errorf("confirmed[%s] missing", p)
		}
		if _, ok := g.OpenRequests[p]; !ok {
			t.Errorf("open_requests[%s] missing", p)
		}
	}
}

func TestGameIDSortsChronologically(t *testing.T) {
	early := GameID(time.Date(2025, 9, 20, 9, 0, 0, 0, time.UTC))
	late := GameID(time.Date(2025, 9, 20, 19, 30, 0, 0, time.UTC))
	nextDay := GameID(time.Date(2025, 9, 21, 8, 0, 0, 0, time.UTC))
	if !(early < late && late < nextDay) {
		t.Fatalf("ids not chronological: %q %q %q", early, late, nextDay)
	}
}

func TestSlotOpen(t *testing.T) {
	g := NewGame(time.Now(), "x")
	g.Roster[PosC] = "alice"
	g.Confirmed[PosC] = true
	g.Roster[PosLW] = "bob" // assigned, never confirmed

	cases := []struct {
		pos  Position
		want bool
	}{
		{PosC, false},
		{PosLW, true},
		{PosRW, true},
	}
	for _, tc := range cases {
		if got := g.SlotOpen(tc.pos); got != tc.want {
			t.Errorf("SlotOpen(%s) = %v, want %v", tc.pos, got, tc.want)
		}
	}
}

func TestMissingStartersCanonicalOrder(t *testing.T) {
	g := NewGame(time.Now(), "x")
	g.Roster[PosC] = "alice"
	g.Confirmed[PosC] = true
	g.Roster[PosG] = "bob" // unconfirmed counts as missing
	g.Roster[PosUtil] = "carol"
	g.Confirmed[PosUtil] = true // utils never count

	got := g.MissingStarters()
	want := []Position{PosLW, PosRW, PosLD, PosRD, PosG}
	if len(got) != len(want) {
		t.Fatalf("missing = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("missing[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPositionOf(t *testing.T) {
	g := NewGame(time.Now(), "x")
	g.Roster[PosRD] = "dave"

	if pos, ok := g.PositionOf("dave"); !ok || pos != PosRD {
		t.Fatalf("PositionOf(dave) = %s, %v", pos, ok)
	}
	if _, ok := g.PositionOf("nobody"); ok {
		t.Fatal("PositionOf(nobody) found a slot")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := NewGame(time.Now(), "x")
	g.Roster[PosC] = "alice"
	cp := g.Clone()
	cp.Roster[PosC] = "mallory"
	cp.Fired[AnchorDayOf] = true

	if g.Roster[PosC] != "alice" {
		t.Fatal("clone mutation leaked into original roster")
	}
	if g.Fired[AnchorDayOf] {
		t.Fatal("clone mutation leaked into original fired set")
	}
}

func TestDead(t *testing.T) {
	g := NewGame(time.Now(), "x")
	if g.Dead() {
		t.Fatal("fresh game is dead")
	}
	g.Canceled = true
	if !g.Dead() {
		t.Fatal("canceled game not dead")
	}
	g.Canceled = false
	g.Status = StatusPast
	if !g.Dead() {
		t.Fatal("past game not dead")
	}
}

func TestParsePosition(t *testing.T) {
	cases := []struct {
		in   string
		want Position
		ok   bool
	}{
		{"C", PosC, true},
		{"UTIL2", PosUtil2, true},
		{"g", "", false},
		{"center", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParsePosition(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParsePosition(%q) = %q, %v", tc.in, got, ok)
		}
	}
}

func TestIsStarter(t *testing.T) {
	for _, p := range StarterPositions {
		if !IsStarter(p) {
			t.Errorf("IsStarter(%s) = false", p)
		}
	}
	if IsStarter(PosUtil) || IsStarter(PosUtil2) {
		t.Fatal("utils counted as starters")
	}
}

func TestHumanLabel(t *testing.T) {
	if Human(PosG) != "Goalie" {
		t.Fatalf("Human(G) = %q", Human(PosG))
	}
	if Human(PosLW) != "LW" {
		t.Fatalf("Human(LW) = %q", Human(PosLW))
	}
}

func TestNewPracticeLobby(t *testing.T) {
	created := time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC)
	l := NewPracticeLobby("creator", "Random Online", 15, created)

	if l.ID != "PRAC-1758369600" {
		t.Fatalf("id = %q", l.ID)
	}
	for _, p := range PracticePositions {
		if v, ok := l.Roster[p]; !ok || v != "" {
			t.Errorf("roster[%s] = %q ok=%v", p, v, ok)
		}
	}
	if _, ok := l.Roster[PosUtil]; ok {
		t.Fatal("practice lobby has a UTIL slot")
	}
}

func TestPracticeLobbyPositionOf(t *testing.T) {
	l := NewPracticeLobby("creator", "x", 10, time.Now())
	l.Roster[PosG] = "gina"
	if pos, ok := l.PositionOf("gina"); !ok || pos != PosG {
		t.Fatalf("PositionOf(gina) = %s, %v", pos, ok)
	}
	if _, ok := l.PositionOf("creator"); ok {
		t.Fatal("creator seated without claiming")
	}
}
