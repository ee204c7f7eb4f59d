// ABOUTME: Bookmarked catalog exercises backed by the kv layer at savedExercises_data
// ABOUTME: Insertion-ordered set keyed by catalog exercise ID

package saved

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/repfit/repfit/internal/kv"
	"github.com/repfit/repfit/internal/notify"
)

// Category classifies a catalog exercise.
type Category string

// Catalog categories.
const (
	CategoryCalisthenics Category = "calisthenics"
	CategoryCore         Category = "core"
	CategoryMobility     Category = "mobility"
	CategoryOther        Category = "other"
)

// Valid reports whether c is a recognized category.
func (c Category) Valid() bool {
	switch c {
	case CategoryCalisthenics, CategoryCore, CategoryMobility, CategoryOther:
		return true
	}
	return false
}

// Exercise is a bookmark referencing a catalog entry. The catalog itself is
// static external data; only the bookmark is owned here.
type Exercise struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Category    Category `json:"category"`
	Difficulty  int      `json:"difficulty"` // 1..3
}

// Store owns the set of saved exercises. Sole writer of savedExercises_data.
type Store struct {
	mu        sync.Mutex
	kv        kv.Store
	exercises []Exercise
	notifier  *notify.Broadcaster
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithNotifier attaches a change broadcaster.
func WithNotifier(n *notify.Broadcaster) Option {
	return func(s *Store) { s.notifier = n }
}

// New creates the store and restores any persisted bookmarks. Storage faults
// degrade to an empty set.
func New(ctx context.Context, store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:     store,
		logger: slog.Default().With("component", "saved_exercises"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.restore(ctx)
	return s
}

func (s *Store) restore(ctx context.Context) {
	raw, err := s.kv.Get(ctx, kv.KeySavedExercises)
	if errors.Is(err, kv.ErrNoValue) {
		return
	}
	if err != nil {
		s.logger.Error("failed to load saved exercises, starting empty", "error", err)
		return
	}
	var exercises []Exercise
	if err := json.Unmarshal([]byte(raw), &exercises); err != nil {
		s.logger.Error("malformed saved exercises data, starting empty", "error", err)
		return
	}
	s.exercises = exercises
}

// Add bookmarks the exercise. Returns false without touching state when the
// ID is missing, already saved, or the write fails.
func (s *Store) Add(ctx context.Context, exercise Exercise) bool {
	if exercise.ID == "" {
		s.logger.Debug("rejected saved exercise without id")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.exercises {
		if e.ID == exercise.ID {
			s.logger.Debug("exercise already saved", "id", exercise.ID)
			return false
		}
	}

	updated := append(append([]Exercise(nil), s.exercises...), exercise)
	if err := s.persist(ctx, updated); err != nil {
		return false
	}
	s.exercises = updated
	s.publish(notify.OpAdd, exercise.ID)
	return true
}

// Remove drops the bookmark with the given ID. The set is persisted even when
// nothing matched, so an emptied set is written out rather than left stale.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]Exercise, 0, len(s.exercises))
	for _, e := range s.exercises {
		if e.ID != id {
			updated = append(updated, e)
		}
	}
	if err := s.persist(ctx, updated); err != nil {
		return false
	}
	s.exercises = updated
	s.publish(notify.OpRemove, id)
	return true
}

// IsSaved reports whether the exercise ID is currently bookmarked.
func (s *Store) IsSaved(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.exercises {
		if e.ID == id {
			return true
		}
	}
	return false
}

// List returns the saved set in insertion order.
func (s *Store) List() []Exercise {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Exercise(nil), s.exercises...)
}

// persist writes the full set. Must be called with mu held.
func (s *Store) persist(ctx context.Context, exercises []Exercise) error {
	data, err := json.Marshal(exercises)
	if err != nil {
		s.logger.Error("failed to encode saved exercises", "error", err)
		return err
	}
	if err := s.kv.Set(ctx, kv.KeySavedExercises, string(data)); err != nil {
		s.logger.Error("failed to persist saved exercises", "error", err)
		return err
	}
	return nil
}

func (s *Store) publish(op, id string) {
	if s.notifier != nil {
		s.notifier.Publish(notify.Change{Store: notify.StoreSaved, Op: op, ID: id})
	}
}
