package notify

import (
	"context"
	"fmt"
	"sync"
)

// Message is one delivery recorded by the Memory gateway.
type Message struct {
	Ref     MessageRef
	Channel string // channel posts
	UserID  string // directs and prompts
	Thread  MessageRef
	Content string
}

// Memory is an in-process Gateway for tests and local runs. It records every
// call and can simulate participants who block DMs.
type Memory struct {
	mu          sync.Mutex
	seq         int
	posts       map[MessageRef]*Message
	order       []MessageRef
	directs     []Message
	prompts     []Message
	threads     map[MessageRef][]Message
	unreachable map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		posts:       map[MessageRef]*Message{},
		threads:     map[MessageRef][]Message{},
		unreachable: map[string]bool{},
	}
}

// Block marks a participant as unreachable for SendDirect and OpenPrompt.
func (m *Memory) Block(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreachable[userID] = true
}

func (m *Memory) nextRef() MessageRef {
	m.seq++
	return MessageRef(fmt.Sprintf("msg-%d", m.seq))
}

func (m *Memory) PostStatus(_ context.Context, channel, content string) (MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := m.nextRef()
	m.posts[ref] = &Message{Ref: ref, Channel: channel, Content: content}
	m.order = append(m.order, ref)
	return ref, nil
}

func (m *Memory) EditStatus(_ context.Context, ref MessageRef, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.posts[ref]
	if !ok {
		return fmt.Errorf("edit %s: no such message", ref)
	}
	msg.Content = content
	return nil
}

func (m *Memory) Withdraw(_ context.Context, ref MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, ref)
	return nil
}

func (m *Memory) SendDirect(_ context.Context, userID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unreachable[userID] {
		return ErrUnreachable
	}
	m.directs = append(m.directs, Message{UserID: userID, Content: content})
	return nil
}

func (m *Memory) OpenPrompt(_ context.Context, userID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unreachable[userID] {
		return ErrUnreachable
	}
	m.prompts = append(m.prompts, Message{UserID: userID, Content: content})
	return nil
}

func (m *Memory) CreateThread(_ context.Context, parent MessageRef, name string) (MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := m.nextRef()
	m.threads[ref] = []Message{{Ref: ref, Content: name}}
	return ref, nil
}

func (m *Memory) PostToThread(_ context.Context, thread MessageRef, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[thread] = append(m.threads[thread], Message{Thread: thread, Content: content})
	return nil
}

// Posts returns the live (not withdrawn) channel posts, oldest first.
func (m *Memory) Posts(channel string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, ref := range m.order {
		if msg, ok := m.posts[ref]; ok && msg.Channel == channel {
			out = append(out, *msg)
		}
	}
	return out
}

// Directs returns DMs sent to userID, or all DMs when userID is empty.
func (m *Memory) Directs(userID string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, msg := range m.directs {
		if userID == "" || msg.UserID == userID {
			out = append(out, msg)
		}
	}
	return out
}

// Prompts returns ephemeral prompts shown to userID (all when empty).
func (m *Memory) Prompts(userID string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, msg := range m.prompts {
		if userID == "" || msg.UserID == userID {
			out = append(out, msg)
		}
	}
	return out
}

// Live reports whether a posted message still exists.
func (m *Memory) Live(ref MessageRef) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.posts[ref]
	return ok
}
