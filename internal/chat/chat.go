// ABOUTME: Chat session types and the pure conversation summary function
// ABOUTME: A summary is computed once, at append time, from the session's messages

package chat

import "time"

// Role tags who authored a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAssistant }

// titleLimit is the maximum title length in runes before truncation.
const titleLimit = 40

// fallbackTitle is used when a conversation has no user message.
const fallbackTitle = "Chat session"

// Message is one role-tagged utterance in a conversation. Timestamps are
// stamped host-side; the widget's own clock is not trusted.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary is derived from a session's messages at save time.
type Summary struct {
	Title        string `json:"title"`
	MessageCount int    `json:"messageCount"`
	UserMsgCount int    `json:"userMsgCount"`
	BotMsgCount  int    `json:"botMsgCount"`
}

// Session is one saved conversation with the chat widget.
type Session struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Messages  []Message `json:"messages"`
	Summary   Summary   `json:"summary"`
}

// Summarize derives a Summary from messages. The title is the first user
// message, truncated to 40 runes plus an ellipsis when longer. Pure: equal
// input always yields an equal summary. An empty message list yields the
// zero Summary.
func Summarize(messages []Message) Summary {
	if len(messages) == 0 {
		return Summary{}
	}

	title := fallbackTitle
	for _, m := range messages {
		if m.Role == RoleUser {
			title = truncate(m.Content, titleLimit)
			break
		}
	}

	summary := Summary{Title: title, MessageCount: len(messages)}
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			summary.UserMsgCount++
		case RoleAssistant:
			summary.BotMsgCount++
		}
	}
	return summary
}

// truncate shortens s to limit runes, appending "..." when anything was cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
