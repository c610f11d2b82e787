package roster

import (
	"fmt"
	"time"
)

// Status is the time-derived half of a game's lifecycle. Locked and canceled
// are independent manual flags.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusPast     Status = "past"
)

// Anchor identifies a one-shot escalation stage. A fired anchor never fires
// again; the imminent stage is the only repeating one and is tracked by
// timestamp instead (LastImminentAt).
type Anchor string

const (
	AnchorFarHorizon Anchor = "far_horizon"    // ~48h out: publish lineup or solicit volunteers
	AnchorDayBefore  Anchor = "dm_day_before"  // 18:00 local, day before: confirm DMs
	AnchorDayOf      Anchor = "claims_day_of"  // 06:00 local, day of: public claims + re-prompts
	AnchorMinus2h    Anchor = "aggressive_2h"  // forced replacement round
	AnchorPromote1h  Anchor = "util_promoted"  // UTIL auto-promotion
	AnchorMinus30    Anchor = "t30_round"      // replacement round + UTIL2
	AnchorFinalCall  Anchor = "final_call"     // T-5m unconditional round
)

// Game is one scheduled match. Every map is fully populated at construction;
// an unassigned slot is the empty string, never a missing key.
type Game struct {
	ID             string               `json:"id"`
	ScheduledAt    time.Time            `json:"scheduled_at"`
	Opponent       string               `json:"opponent"`
	Status         Status               `json:"status"`
	Roster         map[Position]string  `json:"roster"`
	Confirmed      map[Position]bool    `json:"confirmed"`
	OpenRequests   map[Position]string  `json:"open_requests"`
	Fired          map[Anchor]bool      `json:"fired"`
	LastImminentAt time.Time            `json:"last_imminent_at,omitzero"`
	Locked         bool                 `json:"locked"`
	Canceled       bool                 `json:"canceled"`
	LineupRef      string               `json:"lineup_ref,omitempty"`
	ThreadRef      string               `json:"thread_ref,omitempty"`
}

// GameID renders the identity for a scheduled time. RFC 3339 in the team
// timezone sorts chronologically, so the id doubles as the ordering key.
func GameID(at time.Time) string {
	return at.Format(time.RFC3339)
}

// NewGame builds a game with every slot present and empty.
func NewGame(at time.Time, opponent string) *Game {
	g := &Game{
		ID:           GameID(at),
		ScheduledAt:  at,
		Opponent:     opponent,
		Status:       StatusUpcoming,
		Roster:       map[Position]string{},
		Confirmed:    map[Position]bool{},
		OpenRequests: map[Position]string{},
		Fired:        map[Anchor]bool{},
	}
	for _, p := range AllPositions {
		g.Roster[p] = ""
		g.Confirmed[p] = false
		g.OpenRequests[p] = ""
	}
	return g
}

// Clone returns a deep copy. The store mutates copies and installs them only
// after the write-through succeeds.
func (g *Game) Clone() *Game {
	cp := *g
	cp.Roster = make(map[Position]string, len(g.Roster))
	cp.Confirmed = make(map[Position]bool, len(g.Confirmed))
	cp.OpenRequests = make(map[Position]string, len(g.OpenRequests))
	cp.Fired = make(map[Anchor]bool, len(g.Fired))
	for k, v := range g.Roster {
		cp.Roster[k] = v
	}
	for k, v := range g.Confirmed {
		cp.Confirmed[k] = v
	}
	for k, v := range g.OpenRequests {
		cp.OpenRequests[k] = v
	}
	for k, v := range g.Fired {
		cp.Fired[k] = v
	}
	return &cp
}

// Title is the display label used in notifications and the coach log.
func (g *Game) Title() string {
	return fmt.Sprintf("%s — %s", g.Opponent, g.ID)
}

// SlotOpen reports whether pos can still be claimed: unassigned, or assigned
// but never confirmed.
func (g *Game) SlotOpen(pos Position) bool {
	return g.Roster[pos] == "" || !g.Confirmed[pos]
}

// MissingStarters lists starter slots that are unfilled or unconfirmed, in
// canonical order.
func (g *Game) MissingStarters() []Position {
	var miss []Position
	for _, p := range StarterPositions {
		if g.Roster[p] == "" || !g.Confirmed[p] {
			miss = append(miss, p)
		}
	}
	return miss
}

// PositionOf returns the slot userID currently occupies, if any.
func (g *Game) PositionOf(userID string) (Position, bool) {
	for _, p := range AllPositions {
		if g.Roster[p] != "" && g.Roster[p] == userID {
			return p, true
		}
	}
	return "", false
}

// Dead reports whether the scheduler should skip this game entirely.
func (g *Game) Dead() bool {
	return g.Status == StatusPast || g.Canceled
}
