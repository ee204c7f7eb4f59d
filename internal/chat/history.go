// ABOUTME: Chat history store backed by the kv layer at chatbot_history_data
// ABOUTME: Sessions are prepended newest-first and never mutated after creation

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/repfit/repfit/internal/ids"
	"github.com/repfit/repfit/internal/kv"
	"github.com/repfit/repfit/internal/notify"
)

// ErrNoMessages is returned when saving a conversation with no messages.
var ErrNoMessages = errors.New("conversation has no messages")

// History owns the list of saved chat sessions. Sole writer of the
// chatbot_history_data key. The in-memory list only changes after the
// corresponding write succeeds, so callers never observe a half-saved state.
type History struct {
	mu       sync.Mutex
	store    kv.Store
	sessions []Session
	notifier *notify.Broadcaster
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a History.
type Option func(*History)

// WithClock replaces the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(h *History) { h.now = now }
}

// WithNotifier attaches a change broadcaster.
func WithNotifier(n *notify.Broadcaster) Option {
	return func(h *History) { h.notifier = n }
}

// NewHistory creates the store and restores persisted sessions. Storage
// faults degrade to an empty history.
func NewHistory(ctx context.Context, store kv.Store, opts ...Option) *History {
	h := &History{
		store:  store,
		logger: slog.Default().With("component", "chat_history"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.restore(ctx)
	return h
}

func (h *History) restore(ctx context.Context) {
	raw, err := h.store.Get(ctx, kv.KeyChatHistory)
	if errors.Is(err, kv.ErrNoValue) {
		return
	}
	if err != nil {
		h.logger.Error("failed to load chat history, starting empty", "error", err)
		return
	}
	var sessions []Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		h.logger.Error("malformed chat history data, starting empty", "error", err)
		return
	}
	h.sessions = sessions
	h.logger.Debug("chat history restored", "sessions", len(sessions))
}

// AddSession wraps messages in a new session with a fresh ID, the current
// timestamp, and a summary computed once, then prepends it and persists
// within the same call.
func (h *History) AddSession(ctx context.Context, messages []Message) (*Session, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	session := Session{
		ID:        ids.New("chat", now),
		Timestamp: now,
		Messages:  append([]Message(nil), messages...),
		Summary:   Summarize(messages),
	}

	updated := append([]Session{session}, h.sessions...)
	if err := h.persist(ctx, updated); err != nil {
		return nil, err
	}
	h.sessions = updated

	h.logger.Debug("chat session saved",
		"id", session.ID,
		"messages", session.Summary.MessageCount)
	h.publish(notify.OpAdd, session.ID)
	return &session, nil
}

// List returns sessions newest-first. A limit of 0 or less returns everything.
// Stored order is already newest-first; listing never re-sorts.
func (h *History) List(limit int) []Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := append([]Session(nil), h.sessions...)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// Get returns the session with the given ID, or nil.
func (h *History) Get(id string) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.sessions {
		if s.ID == id {
			copied := s
			return &copied
		}
	}
	return nil
}

// Remove deletes the session with the given ID. Reports whether anything was
// removed.
func (h *History) Remove(ctx context.Context, id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	updated := make([]Session, 0, len(h.sessions))
	found := false
	for _, s := range h.sessions {
		if s.ID == id {
			found = true
			continue
		}
		updated = append(updated, s)
	}
	if !found {
		return false
	}
	if err := h.persist(ctx, updated); err != nil {
		return false
	}
	h.sessions = updated
	h.publish(notify.OpRemove, id)
	return true
}

// RemoveAll unconditionally clears the history.
func (h *History) RemoveAll(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.persist(ctx, []Session{}); err != nil {
		return err
	}
	h.sessions = nil
	h.publish(notify.OpRemoveAll, "")
	return nil
}

// persist writes the full session list. Must be called with mu held.
func (h *History) persist(ctx context.Context, sessions []Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		h.logger.Error("failed to encode chat history", "error", err)
		return err
	}
	if err := h.store.Set(ctx, kv.KeyChatHistory, string(data)); err != nil {
		h.logger.Error("failed to persist chat history", "error", err)
		return err
	}
	return nil
}

func (h *History) publish(op, id string) {
	if h.notifier != nil {
		h.notifier.Publish(notify.Change{Store: notify.StoreChats, Op: op, ID: id})
	}
}
