// Package bridge mediates between the application and its two embedded
// third-party widgets: the chat assistant and the RepBot rep counter.
//
// Each widget runs in its own browsing context and talks to the host only
// through structured cross-context messages. The bridge is the single
// validation point for that traffic:
//
//  1. Origin check against a fixed allow-list; anything else is dropped
//     silently.
//  2. Shape check: the payload must carry a recognized "type" discriminator,
//     decoded into a typed payload per message type.
//  3. Dispatch to the registered handler, behind a recover; a misbehaving
//     handler cannot take down the long-lived dispatcher.
//
// The chat widget's messages accumulate in a pending-conversation buffer and
// are committed to the chat history exactly once on chatEnded, however many
// end signals arrive. The rep counter's exerciseCompleted events pass a
// short dedupe window before reaching the exercise log, collapsing the
// duplicate deliveries the widget is known to produce.
package bridge
