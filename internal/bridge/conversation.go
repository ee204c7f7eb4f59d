// ABOUTME: Pending-conversation buffer with the Idle/Accumulating/Saved lifecycle
// ABOUTME: Guarantees exactly one save per conversation against duplicate end signals

package bridge

import (
	"sync"
	"time"

	"github.com/repfit/repfit/internal/chat"
)

type conversationState int

const (
	stateIdle conversationState = iota
	stateAccumulating
	stateSaved
)

// conversation buffers the in-flight chat exchange. Lifecycle:
//
//	Idle -> Accumulating (first message) -> Saved (end) -> Accumulating (next
//	conversation's first message)
//
// An end signal while Idle or already Saved is a no-op, which makes the save
// idempotent against the duplicate chatEnded deliveries the widget produces
// (explicit event plus page-unload path).
type conversation struct {
	mu     sync.Mutex
	state  conversationState
	buffer []chat.Message
	now    func() time.Time
}

func newConversation(now func() time.Time) *conversation {
	if now == nil {
		now = time.Now
	}
	return &conversation{now: now}
}

// append adds a message to the pending buffer, stamping the host's clock.
// The first message after Idle or Saved begins a new conversation.
func (c *conversation) append(role chat.Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateAccumulating {
		c.buffer = nil
		c.state = stateAccumulating
	}
	c.buffer = append(c.buffer, chat.Message{
		Role:      role,
		Content:   content,
		Timestamp: c.now(),
	})
}

// end closes the conversation and hands back its messages exactly once.
// Returns ok=false when there is nothing to save.
func (c *conversation) end() ([]chat.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateAccumulating || len(c.buffer) == 0 {
		return nil, false
	}
	messages := c.buffer
	c.buffer = nil
	c.state = stateSaved
	return messages, true
}
