// ABOUTME: Outbound message posting to embedded widgets
// ABOUTME: Marshals {type, ...data} envelopes; an unavailable target is a warned no-op

package bridge

import (
	"encoding/json"
	"log/slog"
)

// PostTarget is the receiving side of an embedded widget's browsing context.
type PostTarget interface {
	PostMessage(payload []byte) error
}

// Send posts a structured {type, ...data} message to the target. A nil or
// failing target is logged and swallowed; outbound messages are best-effort.
func Send(target PostTarget, msgType string, data map[string]any, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if target == nil {
		logger.Warn("no target available for outbound message", "type", msgType)
		return
	}

	envelope := make(map[string]any, len(data)+1)
	for k, v := range data {
		envelope[k] = v
	}
	envelope["type"] = msgType

	payload, err := json.Marshal(envelope)
	if err != nil {
		logger.Error("failed to encode outbound message", "type", msgType, "error", err)
		return
	}
	if err := target.PostMessage(payload); err != nil {
		logger.Warn("failed to post message to widget", "type", msgType, "error", err)
	}
}
