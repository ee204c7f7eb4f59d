// ABOUTME: Store interface for the origin-scoped key-value persistence layer
// ABOUTME: All repfit state (session, exercises, bookmarks, chats) lives behind this

package kv

import (
	"context"
	"errors"
)

// Well-known keys. Each state store is the sole writer of its own key;
// no two stores share a key.
const (
	KeyUser            = "user"
	KeyRegisteredUsers = "registeredUsers"
	KeySavedEmail      = "savedEmail"
	KeyExercises       = "exercises_data"
	KeySavedExercises  = "savedExercises_data"
	KeyChatHistory     = "chatbot_history_data"
)

// ErrNoValue is returned by Get when the key has never been written.
var ErrNoValue = errors.New("no value for key")

// Store is a synchronous string-keyed, string-valued persistence medium.
// Values are JSON documents. There are no transactions and no expiry.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store
	Close() error
}
