// ABOUTME: Tests for the change broadcaster.
// ABOUTME: Validates delivery, slow-subscriber drops, and context-based cleanup.

package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_DeliversToSubscriber(t *testing.T) {
	b := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _ := b.Subscribe(ctx)

	b.Publish(Change{Store: StoreExercises, Op: OpAdd, ID: "ex-1"})

	select {
	case change := <-ch:
		assert.Equal(t, StoreExercises, change.Store)
		assert.Equal(t, OpAdd, change.Op)
		assert.Equal(t, "ex-1", change.ID)
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}
}

func TestBroadcaster_DeliversToAllSubscribers(t *testing.T) {
	b := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1, _ := b.Subscribe(ctx)
	ch2, _ := b.Subscribe(ctx)

	b.Publish(Change{Store: StoreChats, Op: OpRemoveAll})

	for _, ch := range []<-chan Change{ch1, ch2} {
		select {
		case change := <-ch:
			assert.Equal(t, OpRemoveAll, change.Op)
		case <-time.After(time.Second):
			t.Fatal("no change delivered")
		}
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, subID := b.Subscribe(ctx)
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(subID)
	assert.Equal(t, 0, b.SubscriberCount())

	// Channel is closed after unsubscribe
	_, open := <-ch
	assert.False(t, open)
}

func TestBroadcaster_ContextCancelCleansUp(t *testing.T) {
	b := New(nil)
	ctx, cancel := context.WithCancel(context.Background())

	b.Subscribe(ctx)
	require.Equal(t, 1, b.SubscriberCount())

	cancel()

	assert.Eventually(t, func() bool {
		return b.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestBroadcaster_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b.Subscribe(ctx) // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBufferSize*2; i++ {
			b.Publish(Change{Store: StoreSession, Op: OpLogin})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
