package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seajay03/chel/internal/notify"
	"github.com/seajay03/chel/internal/quotes"
	"github.com/seajay03/chel/internal/roster"
)

// Administrative operations. Caller authorization (manager membership) is
// checked by the surface that receives the command, not here.

// CreateGame registers a new game and posts its lineup card.
func (m *Machine) CreateGame(ctx context.Context, at time.Time, opponent string) (*roster.Game, error) {
	if opponent == "" {
		opponent = "UNKNOWN"
	}
	g := roster.NewGame(at.In(m.loc), opponent)
	if err := m.store.AddGame(g); err != nil {
		return nil, err
	}
	m.RefreshLineup(ctx, g.ID, "New game created.")
	return m.store.GetGame(g.ID)
}

// Reschedule moves a game. Identity is derived from the scheduled time, so
// the id changes and the fired anchors reset for the new countdown.
func (m *Machine) Reschedule(ctx context.Context, id string, at time.Time) (string, error) {
	newID := roster.GameID(at.In(m.loc))
	err := m.store.RescheduleGame(id, func(g *roster.Game) error {
		g.ID = newID
		g.ScheduledAt = at.In(m.loc)
		g.Status = roster.StatusUpcoming
		g.Fired = map[roster.Anchor]bool{}
		g.LastImminentAt = time.Time{}
		return nil
	})
	if err != nil {
		return "", err
	}
	m.RefreshLineup(ctx, newID, "Rescheduled.")
	return newID, nil
}

// SetLock toggles the roster lock. Locked suppresses roster mutation but
// informational posting continues.
func (m *Machine) SetLock(ctx context.Context, id string, locked bool) error {
	if err := m.store.UpdateGame(id, func(g *roster.Game) error {
		g.Locked = locked
		return nil
	}); err != nil {
		return err
	}
	note := "Roster unlocked."
	if locked {
		note = "Roster locked."
	}
	m.RefreshLineup(ctx, id, note)
	return nil
}

// Cancel is terminal: open requests are withdrawn and no escalation stage
// fires afterward. The record stays around for history.
func (m *Machine) Cancel(ctx context.Context, id string) error {
	var title string
	if err := m.store.UpdateGame(id, func(g *roster.Game) error {
		g.Canceled = true
		title = g.Title()
		return nil
	}); err != nil {
		return err
	}
	if err := m.ClearOpenRequests(ctx, id); err != nil {
		return err
	}
	if _, err := m.gw.PostStatus(ctx, m.ch.General, "🚫 Game canceled: "+title); err != nil {
		m.log.Warn("cancel broadcast failed", zap.Error(err))
	}
	m.RefreshLineup(ctx, id, "Game canceled.")
	return nil
}

// Delete removes the record entirely.
func (m *Machine) Delete(ctx context.Context, id string) error {
	return m.store.DeleteGame(id)
}

// AssignSlot is the manager's direct assignment: the player goes in
// unconfirmed and gets a confirm prompt.
func (m *Machine) AssignSlot(ctx context.Context, id string, pos roster.Position, userID string) error {
	err := m.store.UpdateGame(id, func(g *roster.Game) error {
		if g.Locked {
			return roster.ErrRosterLocked
		}
		if g.Canceled {
			return roster.ErrGameCanceled
		}
		if existing, ok := g.PositionOf(userID); ok && existing != pos {
			return fmt.Errorf("%w (%s)", roster.ErrAlreadyRostered, existing)
		}
		g.Roster[pos] = userID
		g.Confirmed[pos] = false
		return nil
	})
	if err != nil {
		return err
	}
	g, err := m.store.GetGame(id)
	if err != nil {
		return err
	}
	content := notify.ConfirmPrompt(g, pos, m.quotes.Pick(quotes.PlayerConfirmed, userID), "")
	if perr := m.gw.OpenPrompt(ctx, userID, content); perr != nil {
		m.log.Warn("assign prompt failed", zap.String("user", userID), zap.Error(perr))
	}
	m.RefreshLineup(ctx, id, "Roster updated.")
	return nil
}

// EmergencyRemoval drops a player's confirmation at their own request,
// tells the coach why, and starts a replacement round immediately.
func (m *Machine) EmergencyRemoval(ctx context.Context, id string, pos roster.Position, userID, reason string) error {
	err := m.store.UpdateGame(id, func(g *roster.Game) error {
		if g.Roster[pos] == "" || g.Roster[pos] != userID {
			return roster.ErrNotAssigned
		}
		g.Confirmed[pos] = false
		return nil
	})
	if err != nil {
		return err
	}
	g, err := m.store.GetGame(id)
	if err != nil {
		return err
	}
	m.coachLog(ctx, "🆘 Removal requested by "+userID+" for **"+string(pos)+"** in "+g.Title()+":\n> "+reason)
	m.ReplacementRound(ctx, id, "emergency")
	m.RefreshLineup(ctx, id, string(pos)+" opened due to player emergency.")
	return nil
}

// Broadcast posts a manager reminder to the general channel.
func (m *Machine) Broadcast(ctx context.Context, id, text string) error {
	g, err := m.store.GetGame(id)
	if err != nil {
		return err
	}
	_, err = m.gw.PostStatus(ctx, m.ch.General, "📣 "+text+"\n(Game: "+g.Title()+")")
	return err
}

// StartConfirms re-prompts every assigned player on demand.
func (m *Machine) StartConfirms(ctx context.Context, id string) error {
	g, err := m.store.GetGame(id)
	if err != nil {
		return err
	}
	m.SendConfirmPrompts(ctx, g, "manual")
	return nil
}
