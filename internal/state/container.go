// Package state exposes the read model the UI renders from. All fields are
// derived from the stores and trackers; nothing here makes decisions of its
// own beyond aggregation.
package state

import (
	"sync"

	"github.com/jmendes/peerchat/internal/store"
)

// RenderCap bounds the in-memory message list of the active conversation.
// The full log stays durable and paginable in the store.
const RenderCap = 100

// Container is the single source of truth for the UI.
type Container struct {
	mu sync.RWMutex

	conversations []store.Conversation
	activeID      string
	messages      []store.Message
	loading       bool
	err           error

	refreshCh chan struct{}
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (c *Container) RefreshCh() <-chan struct{} {
	return c.refreshCh
}

func (c *Container) signalRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

// SetConversations replaces the conversation list snapshot.
func (c *Container) SetConversations(convs []store.Conversation) {
	c.mu.Lock()
	c.conversations = convs
	c.mu.Unlock()
	c.signalRefresh()
}

// Conversations returns a copy of the current conversation list.
func (c *Container) Conversations() []store.Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]store.Conversation, len(c.conversations))
	copy(out, c.conversations)
	return out
}

// SetActive switches the active conversation and installs its message page.
func (c *Container) SetActive(id string, msgs []store.Message) {
	if len(msgs) > RenderCap {
		msgs = msgs[len(msgs)-RenderCap:]
	}
	c.mu.Lock()
	c.activeID = id
	c.messages = msgs
	c.mu.Unlock()
	c.signalRefresh()
}

// ClearActive leaves the current conversation.
func (c *Container) ClearActive() {
	c.mu.Lock()
	c.activeID = ""
	c.messages = nil
	c.mu.Unlock()
	c.signalRefresh()
}

// ActiveID returns the id of the active conversation, empty if none.
func (c *Container) ActiveID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeID
}

// Messages returns a copy of the active conversation's message list.
func (c *Container) Messages() []store.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]store.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// AppendMessage adds a message to the active list if the conversation
// matches, trimming the oldest entries past RenderCap. Returns whether the
// message was appended.
func (c *Container) AppendMessage(m store.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeID == "" || m.ConversationID != c.activeID {
		return false
	}
	c.messages = append(c.messages, m)
	if len(c.messages) > RenderCap {
		c.messages = c.messages[len(c.messages)-RenderCap:]
	}
	c.signalRefresh()
	return true
}

// RemoveMessage deletes a message from the active list (failed optimistic
// send rollback). Returns whether it was present.
func (c *Container) RemoveMessage(msgID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.messages {
		if m.MsgID == msgID {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			c.signalRefresh()
			return true
		}
	}
	return false
}

// UpdateMessage mutates a message of the active list in place. Returns
// whether the message was found.
func (c *Container) UpdateMessage(msgID string, fn func(*store.Message)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages {
		if c.messages[i].MsgID == msgID {
			fn(&c.messages[i])
			c.signalRefresh()
			return true
		}
	}
	return false
}

// MessageByDownloadID scans the active list for a message carrying the given
// download id. Used to recover a tracker mapping when a progress event beats
// its started event.
func (c *Container) MessageByDownloadID(downloadID string) (store.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.messages {
		if m.DownloadID == downloadID {
			return m, true
		}
	}
	return store.Message{}, false
}

// SetLoading flags an in-flight backend call.
func (c *Container) SetLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
	c.signalRefresh()
}

// Loading reports whether a backend call is in flight.
func (c *Container) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// SetError records a dismissible error state (nil clears it).
func (c *Container) SetError(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	c.signalRefresh()
}

// Err returns the current error state, nil if none.
func (c *Container) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}
