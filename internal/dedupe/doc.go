// Package dedupe suppresses duplicate deliveries of widget events.
//
// The embedded rep-counter widget can redeliver the same exerciseCompleted
// message, and the chat widget's end-of-conversation signal can arrive from
// both an explicit event and a page-unload path. The bridge collapses such
// bursts by keying events and asking a Window whether the key was already
// observed inside a short, bounded interval.
//
// Window is size-bounded (oldest evicted first) and sweeps expired keys
// inline, so it holds no goroutines and needs no shutdown.
package dedupe
