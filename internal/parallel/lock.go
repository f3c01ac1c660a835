package parallel

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// TimedMutex is a mutual-exclusion lock whose acquisition can be bounded in
// time. Every lock shared between the engine's goroutines is a TimedMutex so
// that no goroutine waits indefinitely on another: a missed acquisition just
// skips the current cycle.
//
// The zero value is not usable; create one with NewTimedMutex.
type TimedMutex struct {
	sem *semaphore.Weighted
}

// NewTimedMutex returns an unlocked TimedMutex.
func NewTimedMutex() *TimedMutex {
	return &TimedMutex{sem: semaphore.NewWeighted(1)}
}

// TryLock acquires the lock only if it is free.
func (m *TimedMutex) TryLock() bool {
	return m.sem.TryAcquire(1)
}

// TryLockFor acquires the lock, waiting at most d. It reports whether the
// lock is now held by the caller.
func (m *TimedMutex) TryLockFor(d time.Duration) bool {
	if m.sem.TryAcquire(1) {
		return true
	}
	if d <= 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return m.sem.Acquire(ctx, 1) == nil
}

// Lock acquires the lock, waiting until ctx is done.
func (m *TimedMutex) Lock(ctx context.Context) error {
	return m.sem.Acquire(ctx, 1)
}

// Unlock releases the lock. Unlocking an unlocked TimedMutex panics.
func (m *TimedMutex) Unlock() {
	m.sem.Release(1)
}

// Notifier is a level-triggered wake-up signal for one waiting goroutine.
//
// Notify never blocks; notifications that arrive while one is already pending
// are coalesced.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier returns a Notifier with no pending notification.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify marks the notifier as pending.
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// C returns the channel that receives a value when a notification is pending.
func (n *Notifier) C() <-chan struct{} {
	return n.ch
}
