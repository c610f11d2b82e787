// Package claims resolves slot claims into durable assignments. Phase 1
// registers an intent and prompts the candidate; phase 2 re-validates inside
// the store's critical section, so when two candidates race for one slot the
// first confirm to observe it open wins and the loser gets a conflict.
// An intent is pure bookkeeping; nothing needs compensating when it expires.
package claims

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seajay03/chel/internal/notify"
	"github.com/seajay03/chel/internal/roster"
	"github.com/seajay03/chel/internal/store"
)

var ErrUnknownClaim = errors.New("no such claim")
var ErrClaimExpired = errors.New("claim window expired")
var ErrWrongClaimant = errors.New("that claim belongs to someone else")
var ErrNothingToConfirm = errors.New("no unconfirmed assignment found")

// DefaultWindow bounds phase 2: confirm within it or re-claim.
const DefaultWindow = 5 * time.Minute

// Surface is the post-commit messaging work the engine delegates back to the
// lifecycle machine.
type Surface interface {
	RefreshLineup(ctx context.Context, gameID, note string)
	PostClaimRequest(ctx context.Context, gameID string, pos roster.Position, reason string)
}

type intent struct {
	token    string
	gameID   string
	pos      roster.Position
	userID   string
	issuedAt time.Time
}

type Engine struct {
	store   *store.Store
	gw      notify.Gateway
	surface Surface
	log     *zap.Logger
	window  time.Duration
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]*intent // token -> intent
}

func New(st *store.Store, gw notify.Gateway, surface Surface, window time.Duration, log *zap.Logger) *Engine {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Engine{
		store:   st,
		gw:      gw,
		surface: surface,
		log:     log,
		window:  window,
		now:     time.Now,
		pending: map[string]*intent{},
	}
}

// checkClaimable holds the shared validation for both phases. A player on a
// flexible slot may move into an open starter slot; any other double
// occupancy is a conflict.
func checkClaimable(g *roster.Game, pos roster.Position, userID string) error {
	if g.Canceled {
		return roster.ErrGameCanceled
	}
	if g.Status == roster.StatusPast {
		return roster.ErrGamePast
	}
	if g.Locked {
		return roster.ErrRosterLocked
	}
	if !g.SlotOpen(pos) {
		return roster.ErrSlotTaken
	}
	if prior, ok := g.PositionOf(userID); ok && prior != pos {
		if roster.IsStarter(prior) || !roster.IsStarter(pos) {
			return fmt.Errorf("%w (%s)", roster.ErrAlreadyRostered, prior)
		}
	}
	return nil
}

// Claim is phase 1: validate, register the intent, prompt the candidate.
// Returns the confirmation token the candidate must present in phase 2.
func (e *Engine) Claim(ctx context.Context, gameID string, pos roster.Position, userID string) (string, error) {
	if _, ok := roster.ParsePosition(string(pos)); !ok {
		return "", roster.ErrUnknownPosition
	}
	g, err := e.store.GetGame(gameID)
	if err != nil {
		return "", err
	}
	if err := checkClaimable(g, pos, userID); err != nil {
		return "", err
	}

	in := &intent{
		token:    uuid.NewString(),
		gameID:   gameID,
		pos:      pos,
		userID:   userID,
		issuedAt: e.now(),
	}
	e.mu.Lock()
	// One live intent per (game, slot, candidate); a re-claim resets the window.
	for t, old := range e.pending {
		if old.gameID == gameID && old.pos == pos && old.userID == userID {
			delete(e.pending, t)
		}
	}
	e.pending[in.token] = in
	e.mu.Unlock()

	prompt := fmt.Sprintf("Claim **%s** for %s? Confirm within %s.", pos, g.Title(), e.window)
	if perr := e.gw.OpenPrompt(ctx, userID, prompt); perr != nil {
		e.log.Warn("claim prompt failed", zap.String("user", userID), zap.Error(perr))
	}
	return in.token, nil
}

// Confirm is phase 2. The intent is consumed either way; on a lost race the
// caller gets ErrSlotTaken and the roster is untouched.
func (e *Engine) Confirm(ctx context.Context, token, userID string) (string, roster.Position, error) {
	e.mu.Lock()
	in, ok := e.pending[token]
	if ok && in.userID != userID {
		e.mu.Unlock()
		return "", "", ErrWrongClaimant
	}
	if ok {
		delete(e.pending, token)
	}
	e.mu.Unlock()
	if !ok {
		return "", "", ErrUnknownClaim
	}
	if e.now().Sub(in.issuedAt) > e.window {
		return "", "", ErrClaimExpired
	}

	var clearedReq notify.MessageRef
	var vacated roster.Position
	err := e.store.UpdateGame(in.gameID, func(g *roster.Game) error {
		if err := checkClaimable(g, in.pos, in.userID); err != nil {
			return err
		}
		if prior, held := g.PositionOf(in.userID); held && prior != in.pos {
			g.Roster[prior] = ""
			g.Confirmed[prior] = false
			vacated = prior
		}
		g.Roster[in.pos] = in.userID
		g.Confirmed[in.pos] = true
		if g.OpenRequests[in.pos] != "" {
			clearedReq = notify.MessageRef(g.OpenRequests[in.pos])
			g.OpenRequests[in.pos] = ""
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}

	if clearedReq != "" {
		if werr := e.gw.Withdraw(ctx, clearedReq); werr != nil {
			e.log.Warn("request withdraw failed", zap.String("ref", string(clearedReq)), zap.Error(werr))
		}
	}
	e.surface.RefreshLineup(ctx, in.gameID, fmt.Sprintf("%s filled by %s", in.pos, in.userID))
	if vacated != "" {
		e.surface.PostClaimRequest(ctx, in.gameID, vacated, "backfill")
	}
	return in.gameID, in.pos, nil
}

// DirectAffirm handles a bare affirmative from an assigned player: confirm
// their nearest upcoming unconfirmed slot, and only that one.
func (e *Engine) DirectAffirm(ctx context.Context, userID string) (string, roster.Position, error) {
	now := e.now()
	for _, g := range e.store.Games() { // chronological
		if g.Dead() || g.Locked || !g.ScheduledAt.After(now) {
			continue
		}
		pos, ok := g.PositionOf(userID)
		if !ok || g.Confirmed[pos] {
			continue
		}
		var clearedReq notify.MessageRef
		err := e.store.UpdateGame(g.ID, func(g *roster.Game) error {
			if g.Canceled || g.Locked || g.Roster[pos] != userID || g.Confirmed[pos] {
				return ErrNothingToConfirm
			}
			g.Confirmed[pos] = true
			if g.OpenRequests[pos] != "" {
				clearedReq = notify.MessageRef(g.OpenRequests[pos])
				g.OpenRequests[pos] = ""
			}
			return nil
		})
		if errors.Is(err, ErrNothingToConfirm) {
			continue // raced with a replacement; try the next game
		}
		if err != nil {
			return "", "", err
		}
		if clearedReq != "" {
			if werr := e.gw.Withdraw(ctx, clearedReq); werr != nil {
				e.log.Warn("request withdraw failed", zap.String("ref", string(clearedReq)), zap.Error(werr))
			}
		}
		e.surface.RefreshLineup(ctx, g.ID, fmt.Sprintf("%s confirmed by %s", pos, userID))
		return g.ID, pos, nil
	}
	return "", "", ErrNothingToConfirm
}

// Sweep discards expired intents. Called by the scheduler each tick so the
// pending set can't grow without bound.
func (e *Engine) Sweep(now time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	dropped := 0
	for t, in := range e.pending {
		if now.Sub(in.issuedAt) > e.window {
			delete(e.pending, t)
			dropped++
		}
	}
	return dropped
}

// PendingCount reports live intents, for the admin surface.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}
