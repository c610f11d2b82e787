// Package notify is the boundary to the messaging platform. The core calls
// out through Gateway; inbound user actions come back through the ws/http
// surfaces as normalized events, never as transport callbacks.
package notify

import (
	"context"
	"errors"
)

// ErrUnreachable means the recipient blocks direct messages. Callers log it
// and move on; escalation progress never stalls on one failed delivery.
var ErrUnreachable = errors.New("recipient unreachable")

// MessageRef identifies a posted message so it can be edited or withdrawn.
type MessageRef string

// Channels names the destinations the core posts to.
type Channels struct {
	Lineup   string
	General  string
	CoachLog string
}

type Gateway interface {
	// PostStatus posts a public message to a channel.
	PostStatus(ctx context.Context, channel, content string) (MessageRef, error)
	// EditStatus rewrites a previously posted message in place.
	EditStatus(ctx context.Context, ref MessageRef, content string) error
	// Withdraw deletes a previously posted message.
	Withdraw(ctx context.Context, ref MessageRef) error
	// SendDirect DMs a participant. Fails with ErrUnreachable when blocked.
	SendDirect(ctx context.Context, userID, content string) error
	// OpenPrompt shows an ephemeral interactive prompt to one participant.
	// The acknowledgement arrives later as a confirm event; the prompt
	// itself never blocks.
	OpenPrompt(ctx context.Context, userID, content string) error
	// CreateThread opens a discussion thread under a posted message.
	CreateThread(ctx context.Context, parent MessageRef, name string) (MessageRef, error)
	// PostToThread posts into an existing thread.
	PostToThread(ctx context.Context, thread MessageRef, content string) error
}
