// ABOUTME: Tests for the exercise log store.
// ABOUTME: Validates add/list/remove semantics, persistence, fault degradation, and notifications.

package exercise

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repfit/repfit/internal/kv"
	"github.com/repfit/repfit/internal/notify"
)

func newTestLog(t *testing.T) (*Log, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	return NewLog(context.Background(), store), store
}

func TestLog_AddStampsIDAndTimestamp(t *testing.T) {
	log, _ := newTestLog(t)

	record, err := log.Add(context.Background(), TypeSquat, 10)
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.False(t, record.Timestamp.IsZero())
	assert.Equal(t, 10, record.Count)
}

func TestLog_AddRejectsUnknownType(t *testing.T) {
	log, _ := newTestLog(t)

	_, err := log.Add(context.Background(), Type("cartwheel"), 10)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestLog_AddRejectsNonPositiveCount(t *testing.T) {
	log, _ := newTestLog(t)

	_, err := log.Add(context.Background(), TypeSquat, 0)
	assert.ErrorIs(t, err, ErrInvalidCount)

	_, err = log.Add(context.Background(), TypeSquat, -3)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestLog_AddPersistsImmediately(t *testing.T) {
	log, store := newTestLog(t)

	_, err := log.Add(context.Background(), TypePushup, 15)
	require.NoError(t, err)

	raw, err := store.Get(context.Background(), kv.KeyExercises)
	require.NoError(t, err)
	assert.Contains(t, raw, `"pushup"`)
}

func TestLog_RoundTripThroughFreshInstance(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()

	log := NewLog(ctx, store)
	_, err := log.Add(ctx, TypeLunge, 8)
	require.NoError(t, err)

	fresh := NewLog(ctx, store)
	records := fresh.List(0)
	require.Len(t, records, 1)
	assert.Equal(t, TypeLunge, records[0].Type)
	assert.Equal(t, 8, records[0].Count)
}

func TestLog_ListNewestFirstWithLimit(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()

	stamp := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	log := NewLog(ctx, store, WithClock(func() time.Time {
		stamp = stamp.Add(time.Hour)
		return stamp
	}))

	for i := 0; i < 5; i++ {
		_, err := log.Add(ctx, TypeSquat, i+1)
		require.NoError(t, err)
	}

	all := log.List(0)
	require.Len(t, all, 5)
	assert.Equal(t, 5, all[0].Count, "newest record first")
	assert.Equal(t, 1, all[4].Count)

	limited := log.List(2)
	require.Len(t, limited, 2)
	assert.Equal(t, 5, limited[0].Count)
}

func TestLog_Remove(t *testing.T) {
	log, _ := newTestLog(t)
	ctx := context.Background()

	record, err := log.Add(ctx, TypeSquat, 10)
	require.NoError(t, err)

	assert.True(t, log.Remove(ctx, record.ID))
	assert.Empty(t, log.List(0))
	assert.False(t, log.Remove(ctx, record.ID), "second remove is a no-op")
}

func TestLog_RemoveAll(t *testing.T) {
	log, store := newTestLog(t)
	ctx := context.Background()

	_, err := log.Add(ctx, TypeSquat, 10)
	require.NoError(t, err)
	_, err = log.Add(ctx, TypePushup, 20)
	require.NoError(t, err)

	require.NoError(t, log.RemoveAll(ctx))
	assert.Empty(t, log.List(0))

	raw, err := store.Get(ctx, kv.KeyExercises)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw, "empty list is written, not left stale")
}

func TestLog_WriteFaultLeavesStateUnchanged(t *testing.T) {
	log, store := newTestLog(t)
	ctx := context.Background()

	_, err := log.Add(ctx, TypeSquat, 10)
	require.NoError(t, err)

	store.FailWrites = true
	store.FailErr = errors.New("quota exceeded")

	_, err = log.Add(ctx, TypeSquat, 5)
	assert.Error(t, err)
	assert.Len(t, log.List(0), 1, "failed add must not change state")
	assert.Error(t, log.RemoveAll(ctx), "RemoveAll surfaces the fault")
}

func TestLog_MalformedStoredDataDegradesToEmpty(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, kv.KeyExercises, "{not json"))

	log := NewLog(ctx, store)
	assert.Empty(t, log.List(0))
}

func TestLog_PublishesChanges(t *testing.T) {
	store := kv.NewMemoryStore()
	broadcaster := notify.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _ := broadcaster.Subscribe(ctx)
	log := NewLog(ctx, store, WithNotifier(broadcaster))

	record, err := log.Add(ctx, TypeSquat, 10)
	require.NoError(t, err)

	select {
	case change := <-ch:
		assert.Equal(t, notify.StoreExercises, change.Store)
		assert.Equal(t, notify.OpAdd, change.Op)
		assert.Equal(t, record.ID, change.ID)
	case <-time.After(time.Second):
		t.Fatal("no change published")
	}
}

func TestLog_GroupsUsesConfiguredLocation(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()

	stamps := []time.Time{
		time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC),
	}
	i := 0
	log := NewLog(ctx, store, WithClock(func() time.Time {
		ts := stamps[i%len(stamps)]
		i++
		return ts
	}))

	_, err := log.Add(ctx, TypeSquat, 10)
	require.NoError(t, err)
	_, err = log.Add(ctx, TypeSquat, 5)
	require.NoError(t, err)

	groups := log.Groups()
	assert.Len(t, groups, 2, "UTC day boundary splits the records")
}
