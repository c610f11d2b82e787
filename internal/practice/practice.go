// Package practice is the manually driven sibling of the game lifecycle:
// no timers, no escalation. Every transition is a direct action by the
// creator, a manager, or a player grabbing a slot.
package practice

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seajay03/chel/internal/notify"
	"github.com/seajay03/chel/internal/roster"
	"github.com/seajay03/chel/internal/store"
)

const (
	MinStartMinutes = 1
	MaxStartMinutes = 120
	defaultOpponent = "Random Online"
)

type Engine struct {
	store *store.Store
	gw    notify.Gateway
	ch    notify.Channels
	log   *zap.Logger
	now   func() time.Time
}

func New(st *store.Store, gw notify.Gateway, ch notify.Channels, log *zap.Logger) *Engine {
	return &Engine{store: st, gw: gw, ch: ch, log: log, now: time.Now}
}

// Create opens a lobby with an empty roster and all flags down.
func (e *Engine) Create(ctx context.Context, creatorID, opponent string, startInMin int) (*roster.PracticeLobby, error) {
	if startInMin < MinStartMinutes || startInMin > MaxStartMinutes {
		return nil, roster.ErrBadStartWindow
	}
	if opponent == "" {
		opponent = defaultOpponent
	}
	if len(opponent) > 60 {
		opponent = opponent[:60]
	}
	l := roster.NewPracticeLobby(creatorID, opponent, startInMin, e.now())
	if err := e.store.AddPractice(l); err != nil {
		return nil, err
	}
	e.refreshCard(ctx, l.ID, "Practice lobby created.")
	return e.store.GetPractice(l.ID)
}

// ClaimSlot seats a player. Rejected when the slot is taken or the player
// already sits elsewhere in this lobby.
func (e *Engine) ClaimSlot(ctx context.Context, id string, pos roster.Position, userID string) error {
	err := e.store.UpdatePractice(id, func(l *roster.PracticeLobby) error {
		if l.Canceled {
			return roster.ErrLobbyCanceled
		}
		if _, ok := l.Roster[pos]; !ok {
			return roster.ErrUnknownPosition
		}
		if l.Roster[pos] != "" {
			return roster.ErrSlotTaken
		}
		if prior, ok := l.PositionOf(userID); ok {
			return fmt.Errorf("%w (%s)", roster.ErrAlreadyRostered, prior)
		}
		l.Roster[pos] = userID
		return nil
	})
	if err != nil {
		return err
	}
	e.refreshCard(ctx, id, fmt.Sprintf("%s joined as **%s**.", userID, pos))
	return nil
}

// LeaveSlot frees whatever slot the player holds. Not being seated is a
// quiet no-op.
func (e *Engine) LeaveSlot(ctx context.Context, id, userID string) error {
	left := roster.Position("")
	err := e.store.UpdatePractice(id, func(l *roster.PracticeLobby) error {
		if l.Canceled {
			return roster.ErrLobbyCanceled
		}
		if pos, ok := l.PositionOf(userID); ok {
			l.Roster[pos] = ""
			left = pos
		}
		return nil
	})
	if err != nil || left == "" {
		return err
	}
	e.refreshCard(ctx, id, fmt.Sprintf("%s left **%s**.", userID, left))
	return nil
}

// SetStartMinutes adjusts the countdown. Creator or manager only.
func (e *Engine) SetStartMinutes(ctx context.Context, id, actorID string, isManager bool, minutes int) error {
	if minutes < MinStartMinutes || minutes > MaxStartMinutes {
		return roster.ErrBadStartWindow
	}
	err := e.store.UpdatePractice(id, func(l *roster.PracticeLobby) error {
		if l.Canceled {
			return roster.ErrLobbyCanceled
		}
		if actorID != l.CreatorID && !isManager {
			return roster.ErrNotAllowed
		}
		l.StartInMin = minutes
		return nil
	})
	if err != nil {
		return err
	}
	e.refreshCard(ctx, id, fmt.Sprintf("Start window set to **%d** minutes.", minutes))
	return nil
}

// Announce DMs every seated player the countdown. Repeatable; each call
// re-sends and leaves announced set.
func (e *Engine) Announce(ctx context.Context, id, actorID string, isManager bool) error {
	var snapshot *roster.PracticeLobby
	err := e.store.UpdatePractice(id, func(l *roster.PracticeLobby) error {
		if l.Canceled {
			return roster.ErrLobbyCanceled
		}
		if actorID != l.CreatorID && !isManager {
			return roster.ErrNotAllowed
		}
		l.Announced = true
		snapshot = l.Clone()
		return nil
	})
	if err != nil {
		return err
	}
	when := e.now().Add(time.Duration(snapshot.StartInMin) * time.Minute).Format("3:04 PM")
	for _, pos := range roster.PracticePositions {
		who := snapshot.Roster[pos]
		if who == "" {
			continue
		}
		msg := fmt.Sprintf("🏒 **Practice starting in %d minutes** (around %s).\nOpponent: %s\nLobby: %s",
			snapshot.StartInMin, when, snapshot.Opponent, snapshot.ID)
		if derr := e.gw.SendDirect(ctx, who, msg); derr != nil {
			e.log.Warn("practice announce DM failed", zap.String("user", who), zap.Error(derr))
		}
	}
	e.refreshCard(ctx, id, "Start announced to squad.")
	return nil
}

// Cancel is terminal. Creator or manager only.
func (e *Engine) Cancel(ctx context.Context, id, actorID string, isManager bool) error {
	err := e.store.UpdatePractice(id, func(l *roster.PracticeLobby) error {
		if actorID != l.CreatorID && !isManager {
			return roster.ErrNotAllowed
		}
		l.Canceled = true
		return nil
	})
	if err != nil {
		return err
	}
	e.refreshCard(ctx, id, "Lobby canceled.")
	return nil
}

// refreshCard posts or edits the lobby card, creating its thread on first
// post, same shape as the game lineup card.
func (e *Engine) refreshCard(ctx context.Context, id, note string) {
	l, err := e.store.GetPractice(id)
	if err != nil {
		return
	}
	content := notify.PracticeCard(l, note)
	if l.MessageRef != "" {
		if err := e.gw.EditStatus(ctx, notify.MessageRef(l.MessageRef), content); err == nil {
			return
		}
	}
	ref, err := e.gw.PostStatus(ctx, e.ch.Lineup, content)
	if err != nil {
		e.log.Warn("practice card post failed", zap.String("lobby", id), zap.Error(err))
		return
	}
	threadRef := l.ThreadRef
	if threadRef == "" {
		if tr, terr := e.gw.CreateThread(ctx, ref, "Practice "+l.ID); terr == nil {
			threadRef = string(tr)
			_ = e.gw.PostToThread(ctx, tr, "🟩 Practice thread created. Chat here.")
		}
	}
	if err := e.store.UpdatePractice(id, func(l *roster.PracticeLobby) error {
		l.MessageRef = string(ref)
		l.ThreadRef = threadRef
		return nil
	}); err != nil {
		e.log.Error("practice ref record failed", zap.String("lobby", id), zap.Error(err))
	}
}
