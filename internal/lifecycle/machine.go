// Package lifecycle drives a game from creation to puck drop. The scheduler
// calls Evaluate once per tick per game; Evaluate compares the clock against
// the game's anchor stages and fires whichever are due, each at most once.
// Notification failures are logged and never block a stage; a persistence
// failure leaves the anchor unfired so the stage retries next tick.
package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seajay03/chel/internal/notify"
	"github.com/seajay03/chel/internal/quotes"
	"github.com/seajay03/chel/internal/roster"
	"github.com/seajay03/chel/internal/store"
)

const (
	farHorizon = 48 * time.Hour
	tMinus2h   = 2 * time.Hour
	tMinus1h   = time.Hour
	tMinus30   = 30 * time.Minute
	tMinus15   = 15 * time.Minute
	tMinus5    = 5 * time.Minute

	// ImminentInterval caps the repeating final-stretch round: at most one
	// round per interval since the last fire, regardless of tick jitter.
	ImminentInterval = 2 * time.Minute

	dayBeforeHour = 18 // 6pm local, day before
	dayOfHour     = 6  // 6am local, day of
)

// urgentReasons get the everyone prefix on claim requests.
var urgentReasons = map[string]bool{
	"6am": true, "aggressive": true, "1h": true, "panic": true,
	"final": true, "emergency": true, "backfill": true,
}

type Machine struct {
	store        *store.Store
	gw           notify.Gateway
	ch           notify.Channels
	quotes       *quotes.Book
	log          *zap.Logger
	loc          *time.Location
	pingEveryone bool
}

func New(st *store.Store, gw notify.Gateway, ch notify.Channels, qb *quotes.Book, loc *time.Location, pingEveryone bool, log *zap.Logger) *Machine {
	return &Machine{store: st, gw: gw, ch: ch, quotes: qb, log: log, loc: loc, pingEveryone: pingEveryone}
}

func (m *Machine) anchorTimes(at time.Time) (dayBefore, dayOf time.Time) {
	local := at.In(m.loc)
	y, mo, d := local.AddDate(0, 0, -1).Date()
	dayBefore = time.Date(y, mo, d, dayBeforeHour, 0, 0, 0, m.loc)
	y, mo, d = local.Date()
	dayOf = time.Date(y, mo, d, dayOfHour, 0, 0, 0, m.loc)
	return dayBefore, dayOf
}

// Evaluate runs every due stage for one game. Monotonic: a game never moves
// backward through its anchors, and dead games are skipped outright.
func (m *Machine) Evaluate(ctx context.Context, id string, now time.Time) error {
	g, err := m.store.GetGame(id)
	if err != nil {
		return err
	}
	until := g.ScheduledAt.Sub(now)

	if until <= 0 {
		if g.Status != roster.StatusPast {
			return m.store.UpdateGame(id, func(g *roster.Game) error {
				g.Status = roster.StatusPast
				return nil
			})
		}
		return nil
	}
	if g.Canceled {
		return nil
	}

	dayBefore, dayOf := m.anchorTimes(g.ScheduledAt)

	if until <= farHorizon && !g.Fired[roster.AnchorFarHorizon] {
		m.stageFarHorizon(ctx, g)
		if err := m.markFired(id, roster.AnchorFarHorizon); err != nil {
			return err
		}
	}

	if !now.Before(dayBefore) && !g.Fired[roster.AnchorDayBefore] {
		m.SendConfirmPrompts(ctx, g, "day-before")
		m.coachLog(ctx, "📫 Day-before confirms sent for "+g.Title())
		if err := m.markFired(id, roster.AnchorDayBefore); err != nil {
			return err
		}
	}

	if !now.Before(dayOf) && !g.Fired[roster.AnchorDayOf] {
		m.stageDayOf(ctx, g)
		if err := m.markFired(id, roster.AnchorDayOf); err != nil {
			return err
		}
	}

	if until <= tMinus2h && !g.Fired[roster.AnchorMinus2h] {
		m.ReplacementRound(ctx, id, "aggressive")
		if err := m.markFired(id, roster.AnchorMinus2h); err != nil {
			return err
		}
	}

	if until <= tMinus1h && !g.Fired[roster.AnchorPromote1h] {
		if err := m.stagePromoteUtil(ctx, id); err != nil {
			return err
		}
	}

	if until <= tMinus30 && !g.Fired[roster.AnchorMinus30] {
		m.ReplacementRound(ctx, id, "30m")
		m.nudgeUtil(ctx, id)
		if err := m.markFired(id, roster.AnchorMinus30); err != nil {
			return err
		}
	}

	if until <= tMinus15 {
		g, err = m.store.GetGame(id)
		if err != nil {
			return err
		}
		if len(g.MissingStarters()) > 0 && now.Sub(g.LastImminentAt) >= ImminentInterval {
			m.ReplacementRound(ctx, id, "panic")
			if err := m.store.UpdateGame(id, func(g *roster.Game) error {
				g.LastImminentAt = now
				return nil
			}); err != nil {
				return err
			}
		}
	}

	if until <= tMinus5 && !g.Fired[roster.AnchorFinalCall] {
		m.ReplacementRound(ctx, id, "final")
		if err := m.markFired(id, roster.AnchorFinalCall); err != nil {
			return err
		}
	}

	return nil
}

func (m *Machine) markFired(id string, a roster.Anchor) error {
	return m.store.UpdateGame(id, func(g *roster.Game) error {
		g.Fired[a] = true
		return nil
	})
}

// stageFarHorizon: with a full lineup just publish it; otherwise flag the
// captain and open the floor. Filled is enough this far out; confirmation
// pressure starts the day before.
func (m *Machine) stageFarHorizon(ctx context.Context, g *roster.Game) {
	unfilled := 0
	for _, p := range roster.StarterPositions {
		if g.Roster[p] == "" {
			unfilled++
		}
	}
	if unfilled == 0 {
		m.RefreshLineup(ctx, g.ID, "48h out — lineup is set.")
		return
	}
	if captain := m.store.CaptainID(); captain != "" {
		if err := m.gw.SendDirect(ctx, captain, "48h out and the lineup for "+g.Title()+" has holes. Round up some bodies."); err != nil {
			m.log.Warn("captain unreachable", zap.String("game", g.ID), zap.Error(err))
		}
	}
	if _, err := m.gw.PostStatus(ctx, m.ch.General, "🏒 "+g.Title()+" is 48h out and we still have open spots. Volunteers?"); err != nil {
		m.log.Warn("volunteer call failed", zap.String("game", g.ID), zap.Error(err))
	}
}

// stageDayOf opens public claims for every missing starter and re-prompts
// the assigned-but-unconfirmed directly.
func (m *Machine) stageDayOf(ctx context.Context, g *roster.Game) {
	for _, pos := range g.MissingStarters() {
		m.PostClaimRequest(ctx, g.ID, pos, "6am")
	}
	for _, pos := range roster.StarterPositions {
		if g.Roster[pos] != "" && !g.Confirmed[pos] {
			msg := "Morning! You're still down as **" + string(pos) + "** for " + g.ID + ". Confirm ASAP or we'll fill your spot."
			if err := m.gw.SendDirect(ctx, g.Roster[pos], msg); err != nil {
				m.log.Warn("morning re-prompt failed", zap.String("user", g.Roster[pos]), zap.Error(err))
			}
		}
	}
}

// stagePromoteUtil moves a confirmed UTIL into the first missing starter
// slot. The promotion and the anchor bit commit together; the backfill
// request and lineup refresh go out after.
func (m *Machine) stagePromoteUtil(ctx context.Context, id string) error {
	var promotedTo roster.Position
	var promoted string
	err := m.store.UpdateGame(id, func(g *roster.Game) error {
		g.Fired[roster.AnchorPromote1h] = true
		if g.Locked || g.Canceled {
			return nil
		}
		miss := g.MissingStarters()
		util := g.Roster[roster.PosUtil]
		if len(miss) == 0 || util == "" || !g.Confirmed[roster.PosUtil] {
			return nil
		}
		promotedTo = miss[0]
		promoted = util
		g.Roster[promotedTo] = util
		g.Confirmed[promotedTo] = true
		g.Roster[roster.PosUtil] = ""
		g.Confirmed[roster.PosUtil] = false
		return nil
	})
	if err != nil || promoted == "" {
		return err
	}
	if g, gerr := m.store.GetGame(id); gerr == nil {
		m.coachLog(ctx, "🔄 Auto-promoted UTIL "+promoted+" to **"+string(promotedTo)+"** for "+g.Title())
	}
	m.PostClaimRequest(ctx, id, roster.PosUtil, "1h")
	m.RefreshLineup(ctx, id, "UTIL auto-promoted to **"+string(promotedTo)+"** at T-1h.")
	return nil
}

// nudgeUtil DMs a confirmed UTIL when starters are still missing at T-30.
func (m *Machine) nudgeUtil(ctx context.Context, id string) {
	g, err := m.store.GetGame(id)
	if err != nil {
		return
	}
	util := g.Roster[roster.PosUtil]
	if util == "" || !g.Confirmed[roster.PosUtil] || len(g.MissingStarters()) == 0 {
		return
	}
	if err := m.gw.SendDirect(ctx, util, "UTIL on deck for "+g.ID+". Starters missing — claim a slot or reply here."); err != nil {
		m.log.Warn("util nudge failed", zap.String("user", util), zap.Error(err))
	}
}

// ReplacementRound opens a claim request for every starter slot that is
// unfilled or unconfirmed and doesn't already have one. Two or more open
// starters with no UTIL2 on the bench also opens a UTIL2 request.
func (m *Machine) ReplacementRound(ctx context.Context, id string, reason string) {
	g, err := m.store.GetGame(id)
	if err != nil {
		return
	}
	if g.Locked || g.Canceled {
		return
	}
	miss := g.MissingStarters()
	for _, pos := range miss {
		if g.OpenRequests[pos] == "" {
			m.PostClaimRequest(ctx, id, pos, reason)
		}
	}
	if len(miss) >= 2 && g.Roster[roster.PosUtil2] == "" && g.OpenRequests[roster.PosUtil2] == "" {
		m.PostClaimRequest(ctx, id, roster.PosUtil2, reason)
	}
}

// PostClaimRequest posts one public claim request and records its ref. The
// post happens outside the critical section; the recording step re-checks
// the slot and withdraws the message if it lost that race.
func (m *Machine) PostClaimRequest(ctx context.Context, id string, pos roster.Position, reason string) {
	g, err := m.store.GetGame(id)
	if err != nil || g.Locked || g.Canceled || g.OpenRequests[pos] != "" || !g.SlotOpen(pos) {
		return
	}
	urgent := m.pingEveryone && urgentReasons[reason]
	content := notify.ClaimRequest(g, pos, m.quotes.Pick(quotes.PlayerMissing, roster.Human(pos)), urgent)
	ref, err := m.gw.PostStatus(ctx, m.ch.General, content)
	if err != nil {
		m.log.Warn("claim request post failed", zap.String("game", id), zap.String("pos", string(pos)), zap.Error(err))
		return
	}
	stale := false
	err = m.store.UpdateGame(id, func(g *roster.Game) error {
		if g.Canceled || !g.SlotOpen(pos) || g.OpenRequests[pos] != "" {
			stale = true
			return nil
		}
		g.OpenRequests[pos] = string(ref)
		return nil
	})
	if err != nil {
		m.log.Error("claim request record failed", zap.String("game", id), zap.Error(err))
		return
	}
	if stale {
		_ = m.gw.Withdraw(ctx, ref)
		return
	}
	if g.ThreadRef != "" {
		_ = m.gw.PostToThread(ctx, notify.MessageRef(g.ThreadRef), content)
	}
}

// SendConfirmPrompts opens a confirm prompt for every assigned player.
func (m *Machine) SendConfirmPrompts(ctx context.Context, g *roster.Game, stage string) {
	if g.Canceled {
		return
	}
	for _, pos := range roster.AllPositions {
		who := g.Roster[pos]
		if who == "" {
			continue
		}
		content := notify.ConfirmPrompt(g, pos, m.quotes.Pick(quotes.PlayerConfirmed, who), stage)
		if err := m.gw.OpenPrompt(ctx, who, content); err != nil {
			m.log.Warn("confirm prompt failed", zap.String("user", who), zap.String("pos", string(pos)), zap.Error(err))
		}
	}
}

// RefreshLineup posts or edits the game's single lineup card, creating the
// discussion thread on first post.
func (m *Machine) RefreshLineup(ctx context.Context, id string, note string) {
	g, err := m.store.GetGame(id)
	if err != nil {
		return
	}
	content := notify.LineupCard(g, note)
	if g.LineupRef != "" {
		if err := m.gw.EditStatus(ctx, notify.MessageRef(g.LineupRef), content); err == nil {
			return
		}
		// Card is gone; fall through and post a fresh one.
	}
	ref, err := m.gw.PostStatus(ctx, m.ch.Lineup, content)
	if err != nil {
		m.log.Warn("lineup post failed", zap.String("game", id), zap.Error(err))
		return
	}
	threadRef := g.ThreadRef
	if threadRef == "" {
		if tr, terr := m.gw.CreateThread(ctx, ref, g.Title()); terr == nil {
			threadRef = string(tr)
			_ = m.gw.PostToThread(ctx, tr, "🏒 Game thread created. Lineup updates and urgent fills land here.")
		}
	}
	if err := m.store.UpdateGame(id, func(g *roster.Game) error {
		g.LineupRef = string(ref)
		g.ThreadRef = threadRef
		return nil
	}); err != nil {
		m.log.Error("lineup ref record failed", zap.String("game", id), zap.Error(err))
	}
}

// ClearOpenRequests withdraws and forgets every outstanding claim request.
func (m *Machine) ClearOpenRequests(ctx context.Context, id string) error {
	var refs []notify.MessageRef
	err := m.store.UpdateGame(id, func(g *roster.Game) error {
		for _, pos := range roster.AllPositions {
			if g.OpenRequests[pos] != "" {
				refs = append(refs, notify.MessageRef(g.OpenRequests[pos]))
				g.OpenRequests[pos] = ""
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if werr := m.gw.Withdraw(ctx, ref); werr != nil {
			m.log.Warn("request withdraw failed", zap.String("ref", string(ref)), zap.Error(werr))
		}
	}
	return nil
}

func (m *Machine) coachLog(ctx context.Context, text string) {
	if _, err := m.gw.PostStatus(ctx, m.ch.CoachLog, text); err != nil {
		m.log.Warn("coach log failed", zap.Error(err))
	}
}
