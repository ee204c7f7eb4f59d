// ABOUTME: SSE change feed over the notify broadcaster.
// ABOUTME: Clients subscribe once and receive a change event per store mutation.

package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// handleEvents handles GET /api/events. It streams store change
// notifications as Server-Sent Events until the client disconnects.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	if a.notifier == nil {
		a.sendJSONError(w, http.StatusServiceUnavailable, "change feed disabled")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		a.logger.Error("streaming not supported")
		a.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	changes, subID := a.notifier.Subscribe(r.Context())
	defer a.notifier.Unsubscribe(subID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	a.writeSSEEvent(w, "connected", map[string]string{"subscription": subID})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			a.writeSSEEvent(w, "change", change)
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a single SSE frame.
func (a *API) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		a.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}
