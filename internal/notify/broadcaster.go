// ABOUTME: In-memory fan-out broadcaster for store change events
// ABOUTME: Replaces the original UI's periodic storage polling with push notification

package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Ops describe what mutated.
const (
	OpAdd       = "add"
	OpRemove    = "remove"
	OpRemoveAll = "remove_all"
	OpLogin     = "login"
	OpLogout    = "logout"
)

// Store names used in change events.
const (
	StoreSession   = "session"
	StoreExercises = "exercises"
	StoreSaved     = "saved_exercises"
	StoreChats     = "chats"
)

// Change describes a single store mutation.
type Change struct {
	Store string `json:"store"`
	Op    string `json:"op"`
	ID    string `json:"id,omitempty"`
}

// Broadcaster provides in-memory pub/sub for store changes. Every mutation in
// the state stores publishes a Change; UI surfaces subscribe instead of
// re-reading storage on a timer.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan Change
	logger      *slog.Logger
}

// New creates a broadcaster. Pass nil logger for default.
func New(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]chan Change),
		logger:      logger.With("component", "notify"),
	}
}

// Subscribe registers a subscriber for all store changes. Returns a channel
// and a subscription ID. The subscription is cleaned up automatically when
// ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan Change, string) {
	subID := uuid.New().String()
	ch := make(chan Change, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish sends a change to all subscribers. Non-blocking: the change is
// dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(change Change) {
	b.mu.RLock()
	targets := make([]chan Change, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- change:
		default:
			b.logger.Debug("dropped change for slow subscriber",
				"store", change.Store,
				"op", change.Op)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// SubscriberCount returns the number of active subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
