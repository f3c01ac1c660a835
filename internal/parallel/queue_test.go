package parallel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/fracview/internal/escape"
)

// =============================================================================
// Helpers
// =============================================================================

func testView(w, h int) escape.Viewport {
	return escape.Viewport{
		Width:     w,
		Height:    h,
		PixelStep: 2.8 / float64(min(w, h)),
		CenterX:   -0.6,
	}
}

// bandTasks returns one full-resolution task per row band of v.
func bandTasks(target []uint16, v escape.Viewport, n int) []Task {
	bands := Bands(escape.Span{Start: 0, End: v.Height}, n, 1)
	tasks := make([]Task, len(bands))
	for i, b := range bands {
		tasks[i] = Task{
			Target:   target,
			MaxIters: 100,
			View:     v,
			Region:   escape.Region{Rows: b, Cols: escape.Span{Start: 0, End: v.Width}},
		}
	}
	return tasks
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// =============================================================================
// TaskQueue Tests
// =============================================================================

func TestTaskQueue_EmptyIsDrained(t *testing.T) {
	q := NewTaskQueue()

	if got := q.Remaining(); got != 0 {
		t.Errorf("Remaining() = %d, want 0", got)
	}
	if _, _, ok := q.Claim(time.Millisecond); ok {
		t.Error("Claim on empty queue should fail")
	}

	drained, err := q.Publish(context.Background(), nil)
	if err != nil {
		t.Fatalf("Publish(nil) error = %v", err)
	}
	if !isClosed(drained) {
		t.Error("empty batch should be drained immediately")
	}
}

func TestTaskQueue_ClaimEachOnce(t *testing.T) {
	q := NewTaskQueue()
	v := testView(10, 10)
	buf := make([]uint16, v.Pixels())

	drained, err := q.Publish(context.Background(), bandTasks(buf, v, 5))
	if err != nil {
		t.Fatalf("Publish error = %v", err)
	}
	if q.Total() != 5 || q.Remaining() != 5 {
		t.Fatalf("Total/Remaining = %d/%d, want 5/5", q.Total(), q.Remaining())
	}

	seen := make(map[int]bool)
	for n := 0; n < 5; n++ {
		task, _, ok := q.Claim(time.Millisecond)
		if !ok {
			t.Fatal("Claim should succeed while tasks are unclaimed")
		}
		if seen[task.Region.Rows.Start] {
			t.Fatalf("band starting at %d claimed twice", task.Region.Rows.Start)
		}
		seen[task.Region.Rows.Start] = true
	}

	_, wake, ok := q.Claim(time.Millisecond)
	if ok {
		t.Fatal("Claim should fail once every task is claimed")
	}
	if wake == nil {
		t.Fatal("a failed claim should return the publish channel")
	}

	// Claimed but not completed: still outstanding.
	if q.Remaining() != 5 {
		t.Errorf("Remaining() = %d, want 5", q.Remaining())
	}
	for n := 0; n < 5; n++ {
		q.Complete()
	}
	if !isClosed(drained) {
		t.Error("drained should close after the last completion")
	}
	if q.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", q.Remaining())
	}
}

func TestTaskQueue_PublishWakesClaimers(t *testing.T) {
	q := NewTaskQueue()
	_, wake, ok := q.Claim(time.Millisecond)
	if ok || wake == nil {
		t.Fatal("expected an empty claim with a wake channel")
	}

	v := testView(4, 4)
	buf := make([]uint16, v.Pixels())
	if _, err := q.Publish(context.Background(), bandTasks(buf, v, 1)); err != nil {
		t.Fatalf("Publish error = %v", err)
	}

	select {
	case <-wake:
	case <-time.After(time.Second):
		t.Fatal("publish should close the wake channel")
	}
}

func TestTaskQueue_RejectsOverlappingBatch(t *testing.T) {
	q := NewTaskQueue()
	v := testView(6, 6)
	buf := make([]uint16, v.Pixels())

	if _, err := q.Publish(context.Background(), bandTasks(buf, v, 2)); err != nil {
		t.Fatalf("Publish error = %v", err)
	}
	_, err := q.Publish(context.Background(), bandTasks(buf, v, 2))
	if !errors.Is(err, ErrBatchInFlight) {
		t.Errorf("second Publish error = %v, want ErrBatchInFlight", err)
	}
}

func TestTaskQueue_RejectsOversizedBatch(t *testing.T) {
	q := NewTaskQueue()
	_, err := q.Publish(context.Background(), make([]Task, MaxQueue+1))
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("Publish error = %v, want ErrQueueFull", err)
	}
}

func TestTaskQueue_RepublishClearsStaleEntries(t *testing.T) {
	q := NewTaskQueue()
	v := testView(8, 8)
	buf := make([]uint16, v.Pixels())

	if _, err := q.Publish(context.Background(), bandTasks(buf, v, 4)); err != nil {
		t.Fatalf("Publish error = %v", err)
	}
	for n := 0; n < 4; n++ {
		if _, _, ok := q.Claim(time.Millisecond); !ok {
			t.Fatal("Claim failed")
		}
		q.Complete()
	}

	if _, err := q.Publish(context.Background(), bandTasks(buf, v, 2)); err != nil {
		t.Fatalf("second Publish error = %v", err)
	}
	claimed := 0
	for {
		if _, _, ok := q.Claim(time.Millisecond); !ok {
			break
		}
		claimed++
	}
	if claimed != 2 {
		t.Errorf("claimed %d tasks from second batch, want 2", claimed)
	}
}

func TestTaskQueue_CompleteOnIdleIsNoop(t *testing.T) {
	q := NewTaskQueue()
	q.Complete()
	if q.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", q.Remaining())
	}
}

func TestTaskQueue_RunCancelled(t *testing.T) {
	q := NewTaskQueue()
	v := testView(4, 4)
	buf := make([]uint16, v.Pixels())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	// No workers: the batch never drains.
	err := q.Run(ctx, bandTasks(buf, v, 2))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run error = %v, want DeadlineExceeded", err)
	}
}

func TestTask_Run(t *testing.T) {
	v := testView(12, 9)
	want := make([]uint16, v.Pixels())
	escape.Compute(want, 100, v, escape.Full(v))

	got := make([]uint16, v.Pixels())
	for _, task := range bandTasks(got, v, 3) {
		task.Run()
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pixel %d = %d, want %d", i, got[i], want[i])
		}
	}
}

// =============================================================================
// Lock Contention Tests
// =============================================================================

func TestTaskQueue_CompleteRetriesBusyLock(t *testing.T) {
	q := NewTaskQueue()
	v := testView(4, 4)
	buf := make([]uint16, v.Pixels())

	drained, err := q.Publish(context.Background(), bandTasks(buf, v, 1))
	if err != nil {
		t.Fatalf("Publish error = %v", err)
	}
	if _, _, ok := q.Claim(time.Millisecond); !ok {
		t.Fatal("Claim should succeed")
	}

	if !q.mu.TryLock() {
		t.Fatal("task lock should be free")
	}
	done := make(chan struct{})
	go func() {
		q.Complete()
		close(done)
	}()

	// Held for several claim timeouts: Complete keeps retrying.
	time.Sleep(10 * claimTimeout)
	select {
	case <-done:
		t.Fatal("Complete returned while the task lock was held")
	default:
	}
	q.mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Complete did not finish after the lock was released")
	}
	if !isClosed(drained) {
		t.Error("completion was dropped: batch not drained")
	}
}

func TestTaskQueue_ReadersReportBusyLock(t *testing.T) {
	q := NewTaskQueue()
	if !q.mu.TryLock() {
		t.Fatal("task lock should be free")
	}
	defer q.mu.Unlock()

	if got := q.Total(); got != -1 {
		t.Errorf("Total() = %d, want -1 while locked", got)
	}
	if got := q.Remaining(); got != -1 {
		t.Errorf("Remaining() = %d, want -1 while locked", got)
	}
}
