package types

import "github.com/seajay03/chel/internal/roster"

// ClientMessage is an inbound user action over the websocket. Identity
// (UserID) is asserted by the platform adapter in front of us; the core does
// no authentication.
type ClientMessage struct {
	Type     string `json:"type"` // "ClaimSlot" | "ConfirmClaim" | "Affirm"
	GameID   string `json:"game_id,omitempty"`
	Position string `json:"position,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Token    string `json:"token,omitempty"`
}

type ServerMessage struct {
	Type      string                  `json:"type"` // "StateSnapshot" | "ClaimPending" | "Confirmed" | "Error"
	Version   int                     `json:"version,omitempty"`
	Games     []*roster.Game          `json:"games,omitempty"`
	Practices []*roster.PracticeLobby `json:"practices,omitempty"`
	Token     string                  `json:"token,omitempty"`
	GameID    string                  `json:"game_id,omitempty"`
	Position  string                  `json:"position,omitempty"`
	Error     string                  `json:"error,omitempty"`
}
