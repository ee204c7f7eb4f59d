// Package kv provides the persistent key-value layer all repfit state sits on.
//
// The browser original kept everything in window.localStorage: a synchronous,
// origin-scoped map of string keys to JSON strings. This package reproduces
// that contract behind the Store interface with two implementations:
//
//   - SQLiteStore: durable storage in a single kv table (modernc.org/sqlite,
//     WAL mode). Used by the daemon.
//   - MemoryStore: map-backed, with fault injection hooks. Used by tests.
//
// Key layout (one writer per key):
//
//	user                 -> current Identity JSON
//	registeredUsers      -> credential registry JSON
//	savedEmail           -> remembered sign-in email
//	exercises_data       -> ExerciseRecord array JSON
//	savedExercises_data  -> SavedExercise array JSON
//	chatbot_history_data -> ChatSession array JSON
//
// Get returns ErrNoValue for never-written keys so callers can distinguish
// "empty" from "failed"; state stores treat both as empty-but-log-the-latter.
package kv
