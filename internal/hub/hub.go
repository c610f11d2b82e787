// Package hub fans out roster snapshots to connected clients. Single actor
// loop; the store pokes it after every durable commit and it rebuilds and
// broadcasts a versioned view.
package hub

import (
	"context"

	"github.com/seajay03/chel/internal/store"
)

type Msg interface{ isHubMsg() }

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isHubMsg() {}

type Leave struct{ ClientID string }

func (Leave) isHubMsg() {}

// Publish announces that the store committed a new version.
type Publish struct{ Version int }

func (Publish) isHubMsg() {}

type Shutdown struct{}

func (Shutdown) isHubMsg() {}

// GetState reflects internal state without data races; test hook.
type GetState struct {
	Reply chan View
}

func (GetState) isHubMsg() {}

type Snapshot struct {
	Version int
	State   store.Snapshot
}

type View struct {
	Version    int
	NumClients int
}

type Hub struct {
	inbox   chan Msg
	store   *store.Store
	version int
	clients map[string]chan Snapshot
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, st *store.Store) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan Msg, 64),
		store:   st,
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

// Inbox exposes the actor's channel to the ws layer, the store hook and
// tests.
func (h *Hub) Inbox() chan<- Msg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: h.version, State: h.store.View()}

			case Leave:
				delete(h.clients, msg.ClientID)

			case Publish:
				if msg.Version <= h.version {
					break // stale commit notification
				}
				h.version = msg.Version
				h.broadcast(Snapshot{Version: h.version, State: h.store.View()})

			case GetState:
				msg.Reply <- View{Version: h.version, NumClients: len(h.clients)}

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch) // tell client no more snapshots
		delete(h.clients, id)
	}
	h.cancel()
}

func (h *Hub) broadcast(snap Snapshot) {
	for id, ch := range h.clients {
		select {
		case ch <- snap:
			// ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(h.clients, id)
		}
	}
}
