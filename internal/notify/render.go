package notify

import (
	"fmt"
	"strings"

	"github.com/seajay03/chel/internal/roster"
)

// LineupCard renders the single editable roster view for a game.
func LineupCard(g *roster.Game, note string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Lineup — %s (%s)\n", g.Opponent, g.ID)
	fmt.Fprintf(&b, "Game at %s\n", g.ScheduledAt.Format("Mon Jan 2 3:04 PM"))
	if note != "" {
		b.WriteString(note + "\n")
	}
	if g.Locked {
		b.WriteString("🔒 Roster is locked.\n")
	}
	if g.Canceled {
		b.WriteString("🚫 Game canceled.\n")
	}
	for _, p := range roster.AllPositions {
		who := g.Roster[p]
		if who == "" {
			who = "—"
		} else if g.Confirmed[p] {
			who += " ✅"
		}
		fmt.Fprintf(&b, "%-5s %s\n", p, who)
	}
	return b.String()
}

// PracticeCard renders a practice lobby view.
func PracticeCard(l *roster.PracticeLobby, note string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🟩 Practice Lobby — %s\n", l.ID)
	fmt.Fprintf(&b, "Creator: %s • Opponent: %s\nStart in: %d min\n", l.CreatorID, l.Opponent, l.StartInMin)
	if note != "" {
		b.WriteString(note + "\n")
	}
	if l.Canceled {
		b.WriteString("🚫 Lobby canceled.\n")
	}
	for _, p := range roster.PracticePositions {
		who := l.Roster[p]
		if who == "" {
			who = "—"
		}
		fmt.Fprintf(&b, "%-5s %s\n", p, who)
	}
	return b.String()
}

// ClaimRequest renders a public claim request. Urgent reasons get the
// everyone prefix.
func ClaimRequest(g *roster.Game, pos roster.Position, quote string, urgent bool) string {
	text := quote
	if text == "" {
		text = fmt.Sprintf("Need a **%s** for %s vs %s at %s.",
			roster.Human(pos), g.ID, g.Opponent, g.ScheduledAt.Format("3:04 PM"))
	}
	if urgent {
		return "@everyone " + text
	}
	return text
}

// ConfirmPrompt renders the DM asking an assigned player to confirm.
func ConfirmPrompt(g *roster.Game, pos roster.Position, quote, stage string) string {
	text := quote
	if text == "" {
		text = fmt.Sprintf("You are listed as **%s** for game %s.", pos, g.ID)
	}
	if stage != "" {
		text = fmt.Sprintf("[%s] %s", stage, text)
	}
	return text + "\nTap to confirm."
}
