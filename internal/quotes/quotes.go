// Package quotes supplies coach flavor text for prompts. Quotes live in a
// plain text file grouped by [CATEGORY] headers; unknown categories fall back
// to a small built-in set so prompts always have something to say.
package quotes

import (
	"bufio"
	"math/rand"
	"os"
	"strings"
)

const (
	PlayerConfirmed = "PLAYER_CONFIRMED"
	PlayerMissing   = "PLAYER_MISSING"
	GameDayStart    = "GAME_DAY_START"
)

var defaults = map[string][]string{
	PlayerConfirmed: {
		"Heads up {player}, you're penciled in. Tap confirm so I stop pacing.",
		"{player}, the slot is yours. Confirm before I juggle lines again.",
	},
	PlayerMissing: {
		"Need a **{player}** to step in. Claim it and be a hero.",
		"Bench is squeaky. Fill the **{player}** slot and tighten it up.",
	},
	GameDayStart: {
		"Game day. Tape your sticks and your feelings.",
		"Skates on. Excuses off.",
	},
}

// Book is a category -> quotes lookup. Zero value serves defaults only.
type Book struct {
	byCategory map[string][]string
}

// Load reads a coachisms file. A missing file is not an error; the defaults
// carry the load.
func Load(path string) (*Book, error) {
	b := &Book{byCategory: map[string][]string{}}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, err
	}
	defer f.Close()

	var cat string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			cat = line[1 : len(line)-1]
			continue
		}
		if cat != "" {
			b.byCategory[cat] = append(b.byCategory[cat], line)
		}
	}
	return b, sc.Err()
}

// Pick returns a random quote for the category with {player} substituted.
// Empty string when neither the book nor the defaults know the category.
func (b *Book) Pick(category, player string) string {
	var arr []string
	if b != nil && b.byCategory != nil {
		arr = b.byCategory[category]
	}
	if len(arr) == 0 {
		arr = defaults[category]
	}
	if len(arr) == 0 {
		return ""
	}
	q := arr[rand.Intn(len(arr))]
	if player == "" {
		player = "this"
	}
	return strings.ReplaceAll(q, "{player}", player)
}
