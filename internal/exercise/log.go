// ABOUTME: Exercise log store backed by the kv layer at key exercises_data
// ABOUTME: Persists the full record list synchronously on every mutation

package exercise

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/repfit/repfit/internal/ids"
	"github.com/repfit/repfit/internal/kv"
	"github.com/repfit/repfit/internal/notify"
)

// Log owns the list of completed-exercise records. It is the sole writer of
// the exercises_data key. Mutations persist before in-memory state changes,
// so a failed write leaves the log untouched.
type Log struct {
	mu       sync.Mutex
	store    kv.Store
	records  []Record
	notifier *notify.Broadcaster
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
}

// LogOption configures a Log.
type LogOption func(*Log)

// WithClock replaces the log's time source. Test hook.
func WithClock(now func() time.Time) LogOption {
	return func(l *Log) { l.now = now }
}

// WithLocation sets the location used for calendar-day grouping.
func WithLocation(loc *time.Location) LogOption {
	return func(l *Log) { l.loc = loc }
}

// WithNotifier attaches a change broadcaster.
func WithNotifier(n *notify.Broadcaster) LogOption {
	return func(l *Log) { l.notifier = n }
}

// NewLog creates the log and restores any persisted records. A missing or
// malformed stored value degrades to an empty log; it never fails construction.
func NewLog(ctx context.Context, store kv.Store, opts ...LogOption) *Log {
	l := &Log{
		store:  store,
		logger: slog.Default().With("component", "exercise_log"),
		now:    time.Now,
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.restore(ctx)
	return l
}

// restore loads persisted records. Faults degrade to empty state.
func (l *Log) restore(ctx context.Context) {
	raw, err := l.store.Get(ctx, kv.KeyExercises)
	if errors.Is(err, kv.ErrNoValue) {
		return
	}
	if err != nil {
		l.logger.Error("failed to load exercises, starting empty", "error", err)
		return
	}
	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		l.logger.Error("malformed exercises data, starting empty", "error", err)
		return
	}
	l.records = records
	l.logger.Debug("exercises restored", "count", len(records))
}

// Add validates, stamps, appends, and persists a new record. The returned
// record carries the assigned ID and timestamp.
func (l *Log) Add(ctx context.Context, typ Type, count int) (*Record, error) {
	if !typ.Valid() {
		return nil, ErrUnknownType
	}
	if count < 1 {
		return nil, ErrInvalidCount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	record := Record{
		ID:        ids.New("ex", now),
		Type:      typ,
		Count:     count,
		Timestamp: now,
	}

	updated := append(append([]Record(nil), l.records...), record)
	if err := l.persist(ctx, updated); err != nil {
		return nil, err
	}
	l.records = updated

	l.logger.Debug("exercise recorded", "id", record.ID, "type", typ, "reps", count)
	l.publish(notify.OpAdd, record.ID)
	return &record, nil
}

// List returns records sorted newest first without mutating stored order.
// A limit of 0 or less returns everything.
func (l *Log) List(limit int) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := append([]Record(nil), l.records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// Groups returns the day+type grouping projection over the current records.
func (l *Log) Groups() []Group {
	l.mu.Lock()
	records := append([]Record(nil), l.records...)
	loc := l.loc
	l.mu.Unlock()

	return GroupByDay(records, loc)
}

// Remove deletes the record with the given ID. Reports whether a record was
// removed. Removing a missing ID is a no-op.
func (l *Log) Remove(ctx context.Context, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	updated := make([]Record, 0, len(l.records))
	found := false
	for _, r := range l.records {
		if r.ID == id {
			found = true
			continue
		}
		updated = append(updated, r)
	}
	if !found {
		return false
	}
	if err := l.persist(ctx, updated); err != nil {
		return false
	}
	l.records = updated
	l.publish(notify.OpRemove, id)
	return true
}

// RemoveAll unconditionally clears the log. Any user confirmation happens
// before this is called.
func (l *Log) RemoveAll(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.persist(ctx, []Record{}); err != nil {
		return err
	}
	l.records = nil
	l.publish(notify.OpRemoveAll, "")
	return nil
}

// persist writes the full record list. Must be called with mu held.
func (l *Log) persist(ctx context.Context, records []Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		l.logger.Error("failed to encode exercises", "error", err)
		return err
	}
	if err := l.store.Set(ctx, kv.KeyExercises, string(data)); err != nil {
		l.logger.Error("failed to persist exercises", "error", err)
		return err
	}
	return nil
}

func (l *Log) publish(op, id string) {
	if l.notifier != nil {
		l.notifier.Publish(notify.Change{Store: notify.StoreExercises, Op: op, ID: id})
	}
}
