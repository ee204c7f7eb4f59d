// ABOUTME: Bounded time-window cache for suppressing duplicate widget events.
// ABOUTME: The rep-counter widget redelivers completion events; identical keys inside the window collapse.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	stamp time.Time
	elem  *list.Element
}

// Window tracks recently seen event keys for a bounded interval.
// Keys older than the window are forgotten; at most maxKeys are retained,
// with the oldest evicted first. Safe for concurrent use.
//
// Expired keys are swept opportunistically on each mark, so no background
// goroutine is needed and there is nothing to tear down.
type Window struct {
	mu      sync.Mutex
	seen    map[string]*entry
	order   *list.List // keys in insertion order, oldest at front
	span    time.Duration
	maxKeys int
	now     func() time.Time
}

// NewWindow creates a dedupe window of the given span holding at most maxKeys.
func NewWindow(span time.Duration, maxKeys int) *Window {
	return &Window{
		seen:    make(map[string]*entry),
		order:   list.New(),
		span:    span,
		maxKeys: maxKeys,
		now:     time.Now,
	}
}

// SetClock replaces the time source. Test hook.
func (w *Window) SetClock(now func() time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = now
}

// Observe records the key and reports whether it was already inside the
// window. The check and the mark are a single atomic step, so two
// concurrent deliveries of the same event cannot both pass.
func (w *Window) Observe(key string) (duplicate bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.sweep(now)

	if e, ok := w.seen[key]; ok && now.Sub(e.stamp) < w.span {
		return true
	}
	w.mark(key, now)
	return false
}

// Mark records the key without checking it first. Callers that only want to
// remember an event after successfully processing it pair Contains with Mark.
func (w *Window) Mark(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.sweep(now)
	w.mark(key, now)
}

// Contains reports whether the key is currently inside the window
// without marking it.
func (w *Window) Contains(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.seen[key]
	return ok && w.now().Sub(e.stamp) < w.span
}

// Len returns the number of tracked keys, expired ones included until swept.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}

// mark records the key, evicting the oldest entry when at capacity.
// Must be called with mu held.
func (w *Window) mark(key string, now time.Time) {
	if e, ok := w.seen[key]; ok {
		e.stamp = now
		w.order.MoveToBack(e.elem)
		return
	}

	if len(w.seen) >= w.maxKeys {
		w.dropFront()
	}

	w.seen[key] = &entry{stamp: now, elem: w.order.PushBack(key)}
}

// sweep drops expired entries from the front of the order list. Entries are
// appended in arrival order, so the front is always the oldest.
// Must be called with mu held.
func (w *Window) sweep(now time.Time) {
	for {
		front := w.order.Front()
		if front == nil {
			return
		}
		key := front.Value.(string)
		if now.Sub(w.seen[key].stamp) < w.span {
			return
		}
		w.dropFront()
	}
}

// dropFront removes the oldest entry. Must be called with mu held.
func (w *Window) dropFront() {
	front := w.order.Front()
	if front == nil {
		return
	}
	key := front.Value.(string)
	w.order.Remove(front)
	delete(w.seen, key)
}
