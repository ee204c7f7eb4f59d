// ABOUTME: Bridge wiring widget messages into the exercise log and chat history
// ABOUTME: chatMessage/chatEnded feed the conversation buffer; exerciseCompleted is deduped then logged

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/repfit/repfit/internal/chat"
	"github.com/repfit/repfit/internal/dedupe"
	"github.com/repfit/repfit/internal/exercise"
)

// Inbound message types.
const (
	TypeChatMessage       = "chatMessage"
	TypeChatEnded         = "chatEnded"
	TypeExerciseCompleted = "exerciseCompleted"
)

// TypeLoadHistory is the outbound replay message for the chat widget.
const TypeLoadHistory = "loadHistory"

// Defaults for the duplicate-completion window.
const (
	defaultDedupeSpan = 5 * time.Second
	dedupeMaxKeys     = 256
)

// chatMessagePayload is the inbound shape from the chat widget. The widget's
// own timestamps are ignored; the host stamps arrival time.
type chatMessagePayload struct {
	Role    chat.Role `json:"role"`
	Content string    `json:"content"`
}

// exerciseCompletedPayload is the inbound shape from the rep-counter widget.
type exerciseCompletedPayload struct {
	ExerciseType exercise.Type `json:"exerciseType"`
	RepCount     int           `json:"repCount"`
}

// Config describes the two embedded widgets.
type Config struct {
	// ChatOrigins and RepBotOrigins together form the allow-list; messages
	// from any other origin are dropped.
	ChatOrigins   []string
	RepBotOrigins []string

	// DedupeSpan bounds the interval in which identical exerciseCompleted
	// events collapse to one record. Zero means the default.
	DedupeSpan time.Duration

	// Clock replaces the time source. Test hook.
	Clock func() time.Time
}

// Bridge decouples the application from the two untrusted embedded widgets.
// It owns the pending-conversation buffer and the completion dedupe window,
// and forwards validated events into the exercise log and chat history.
type Bridge struct {
	dispatcher *Dispatcher
	convo      *conversation
	window     *dedupe.Window
	exercises  *exercise.Log
	chats      *chat.History
	logger     *slog.Logger
}

// New wires a bridge to the given stores.
func New(cfg Config, exercises *exercise.Log, chats *chat.History, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "bridge")

	span := cfg.DedupeSpan
	if span <= 0 {
		span = defaultDedupeSpan
	}

	b := &Bridge{
		convo:     newConversation(cfg.Clock),
		window:    dedupe.NewWindow(span, dedupeMaxKeys),
		exercises: exercises,
		chats:     chats,
		logger:    logger,
	}
	if cfg.Clock != nil {
		b.window.SetClock(cfg.Clock)
	}

	origins := append(append([]string(nil), cfg.ChatOrigins...), cfg.RepBotOrigins...)
	b.dispatcher = NewDispatcher(origins, map[string]Handler{
		TypeChatMessage:       b.handleChatMessage,
		TypeChatEnded:         b.handleChatEnded,
		TypeExerciseCompleted: b.handleExerciseCompleted,
	}, logger)

	return b
}

// Dispatch feeds one raw widget message into the bridge.
func (b *Bridge) Dispatch(ctx context.Context, origin string, payload []byte) {
	b.dispatcher.Dispatch(ctx, origin, payload)
}

// handleChatMessage buffers one utterance of the in-flight conversation.
func (b *Bridge) handleChatMessage(ctx context.Context, env Envelope) {
	var msg chatMessagePayload
	if err := json.Unmarshal(env.Payload, &msg); err != nil {
		b.logger.Debug("malformed chatMessage dropped", "error", err)
		return
	}
	if !msg.Role.Valid() || msg.Content == "" {
		b.logger.Debug("chatMessage with bad role or empty content dropped", "role", msg.Role)
		return
	}

	b.convo.append(msg.Role, msg.Content)
	b.logger.Debug("chat message buffered", "role", msg.Role)
}

// handleChatEnded saves the buffered conversation exactly once. Duplicate end
// signals find the buffer already Saved and do nothing.
func (b *Bridge) handleChatEnded(ctx context.Context, env Envelope) {
	messages, ok := b.convo.end()
	if !ok {
		b.logger.Debug("chatEnded with nothing to save ignored")
		return
	}

	session, err := b.chats.AddSession(ctx, messages)
	if err != nil {
		b.logger.Error("failed to save chat session", "error", err)
		return
	}
	b.logger.Info("chat session saved", "id", session.ID, "messages", len(messages))
}

// handleExerciseCompleted validates, de-duplicates, and logs one completed set.
// The dedupe key is marked only after a successful add, so a transient
// persistence failure does not swallow the retry.
func (b *Bridge) handleExerciseCompleted(ctx context.Context, env Envelope) {
	var completed exerciseCompletedPayload
	if err := json.Unmarshal(env.Payload, &completed); err != nil {
		b.logger.Debug("malformed exerciseCompleted dropped", "error", err)
		return
	}

	key := fmt.Sprintf("%s:%d", completed.ExerciseType, completed.RepCount)
	if b.window.Contains(key) {
		b.logger.Debug("duplicate exerciseCompleted ignored", "key", key)
		return
	}

	record, err := b.exercises.Add(ctx, completed.ExerciseType, completed.RepCount)
	if err != nil {
		b.logger.Debug("exerciseCompleted rejected", "error", err, "key", key)
		return
	}
	b.window.Mark(key)

	b.logger.Info("exercise completion recorded",
		"id", record.ID,
		"type", record.Type,
		"reps", record.Count)
}

// ReplayHistory posts a saved conversation back to the chat widget so a past
// session can be resumed.
func (b *Bridge) ReplayHistory(target PostTarget, session *chat.Session) {
	if session == nil {
		b.logger.Warn("no session to replay")
		return
	}
	Send(target, TypeLoadHistory, map[string]any{"messages": session.Messages}, b.logger)
}
