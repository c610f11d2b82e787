package roster

import (
	"fmt"
	"time"
)

// PracticeLobby is an ad-hoc session. No anchors, no scheduler involvement;
// every transition is a creator or manager action.
type PracticeLobby struct {
	ID           string              `json:"id"`
	CreatorID    string              `json:"creator_id"`
	Opponent     string              `json:"opponent"`
	StartInMin   int                 `json:"start_in_min"`
	Roster       map[Position]string `json:"roster"`
	Announced    bool                `json:"announced"`
	Canceled     bool                `json:"canceled"`
	Started      bool                `json:"started"`
	MessageRef   string              `json:"message_ref,omitempty"`
	ThreadRef    string              `json:"thread_ref,omitempty"`
}

// NewPracticeLobby builds a lobby with the practice slots present and empty.
func NewPracticeLobby(creatorID, opponent string, startInMin int, createdAt time.Time) *PracticeLobby {
	l := &PracticeLobby{
		ID:         fmt.Sprintf("PRAC-%d", createdAt.Unix()),
		CreatorID:  creatorID,
		Opponent:   opponent,
		StartInMin: startInMin,
		Roster:     map[Position]string{},
	}
	for _, p := range PracticePositions {
		l.Roster[p] = ""
	}
	return l
}

// Clone returns a deep copy.
func (l *PracticeLobby) Clone() *PracticeLobby {
	cp := *l
	cp.Roster = make(map[Position]string, len(l.Roster))
	for k, v := range l.Roster {
		cp.Roster[k] = v
	}
	return &cp
}

// PositionOf returns the slot userID occupies in this lobby, if any.
func (l *PracticeLobby) PositionOf(userID string) (Position, bool) {
	for _, p := range PracticePositions {
		if l.Roster[p] != "" && l.Roster[p] == userID {
			return p, true
		}
	}
	return "", false
}
