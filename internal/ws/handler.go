package ws

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/seajay03/chel/internal/claims"
	"github.com/seajay03/chel/internal/hub"
	"github.com/seajay03/chel/internal/roster"
	"github.com/seajay03/chel/internal/types"
)

// Handler streams roster snapshots to the client and feeds its claim and
// confirm actions into the protocol engine.
func Handler(h *hub.Hub, engine *claims.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan hub.Snapshot, 8)
		clientID := randID(6)

		h.Inbox() <- hub.Join{ClientID: clientID, Outbox: out}
		defer func() { h.Inbox() <- hub.Leave{ClientID: clientID} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				msg := types.ServerMessage{
					Type:      "StateSnapshot",
					Version:   snap.Version,
					Games:     snap.State.Games,
					Practices: snap.State.Practices,
				}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeMsg(r.Context(), conn, types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}
			writeMsg(r.Context(), conn, dispatch(r.Context(), engine, cm))
		}
	}
}

func dispatch(ctx context.Context, engine *claims.Engine, cm types.ClientMessage) types.ServerMessage {
	switch cm.Type {
	case "ClaimSlot":
		pos, ok := roster.ParsePosition(cm.Position)
		if !ok {
			return types.ServerMessage{Type: "Error", Error: roster.ErrUnknownPosition.Error()}
		}
		token, err := engine.Claim(ctx, cm.GameID, pos, cm.UserID)
		if err != nil {
			return errMsg(err)
		}
		return types.ServerMessage{Type: "ClaimPending", Token: token, GameID: cm.GameID, Position: cm.Position}

	case "ConfirmClaim":
		gameID, pos, err := engine.Confirm(ctx, cm.Token, cm.UserID)
		if err != nil {
			return errMsg(err)
		}
		return types.ServerMessage{Type: "Confirmed", GameID: gameID, Position: string(pos)}

	case "Affirm":
		gameID, pos, err := engine.DirectAffirm(ctx, cm.UserID)
		if err != nil {
			return errMsg(err)
		}
		return types.ServerMessage{Type: "Confirmed", GameID: gameID, Position: string(pos)}

	default:
		return types.ServerMessage{Type: "Error", Error: "unknown type"}
	}
}

func errMsg(err error) types.ServerMessage {
	// Conflicts and validation failures are normal outcomes for the loser
	// of a race; they go back to the actor as-is.
	var msg string
	switch {
	case errors.Is(err, roster.ErrSlotTaken):
		msg = "too late — already filled"
	default:
		msg = err.Error()
	}
	return types.ServerMessage{Type: "Error", Error: msg}
}

func writeMsg(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, _ := json.Marshal(msg)
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
