// ABOUTME: Origin-filtered dispatcher for structured messages from embedded widgets
// ABOUTME: Unknown origins, unknown types, and handler panics never escape the bridge

package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Envelope is one inbound widget message: the type discriminator plus the
// raw payload for the handler to decode.
type Envelope struct {
	Type    string
	Origin  string
	Payload json.RawMessage
}

// Handler processes one envelope of its registered type.
type Handler func(ctx context.Context, env Envelope)

// Dispatcher validates and routes inbound widget messages. It is long-lived,
// attached once per ingress, so nothing a handler does may bring it down.
type Dispatcher struct {
	origins  map[string]bool
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewDispatcher builds a dispatcher from an origin allow-list and a handler
// table keyed by message type. An empty allow-list admits every origin.
func NewDispatcher(allowedOrigins []string, handlers map[string]Handler, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Dispatcher{
		origins:  origins,
		handlers: handlers,
		logger:   logger.With("component", "bridge"),
	}
}

// Dispatch validates origin and shape, then invokes the handler registered
// for the payload's type. Disallowed origins, missing or unrecognized types,
// and malformed payloads are dropped silently: they are expected noise from
// unrelated cross-context traffic, not errors.
func (d *Dispatcher) Dispatch(ctx context.Context, origin string, payload []byte) {
	if len(d.origins) > 0 && !d.origins[origin] {
		d.logger.Debug("message from disallowed origin dropped", "origin", origin)
		return
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil || probe.Type == "" {
		d.logger.Debug("message without recognizable type dropped")
		return
	}

	handler, ok := d.handlers[probe.Type]
	if !ok {
		d.logger.Debug("message with unrecognized type dropped", "type", probe.Type)
		return
	}

	d.invoke(ctx, handler, Envelope{Type: probe.Type, Origin: origin, Payload: payload})
}

// invoke runs the handler behind a recover so a panicking handler cannot
// kill the dispatcher.
func (d *Dispatcher) invoke(ctx context.Context, handler Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("bridge handler panicked",
				"type", env.Type,
				"panic", r)
		}
	}()
	handler(ctx, env)
}
