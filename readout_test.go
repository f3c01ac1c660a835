package fracview

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/gogpu/fracview/internal/palette"
)

func TestTryReadFrame(t *testing.T) {
	const w, h = 48, 36
	e := newTestEngine(t, w, h)
	dst := make([]byte, w*h*4)

	if e.TryReadFrame(dst, w, h) {
		t.Fatal("TryReadFrame should fail before the first frame")
	}

	converge(t, e)

	tests := []struct {
		name string
		dst  []byte
		w, h int
		want bool
	}{
		{"matching", dst, w, h, true},
		{"wrong size", make([]byte, 10*10*4), 10, 10, false},
		{"short buffer", make([]byte, w*h*4-1), w, h, false},
		{"zero size", dst, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.TryReadFrame(tt.dst, tt.w, tt.h); got != tt.want {
				t.Errorf("TryReadFrame() = %v, want %v", got, tt.want)
			}
		})
	}

	d := display(t, e)
	p := palette.New(1000)
	for i, n := range d.Pixels {
		want := p.At(n)
		for k := 0; k < 4; k++ {
			if dst[i*4+k] != want[k] {
				t.Fatalf("pixel %d channel %d = %d, want %d", i, k, dst[i*4+k], want[k])
			}
		}
	}
}

func TestTryReadFrame_LockBusy(t *testing.T) {
	const w, h = 16, 16
	e := newTestEngine(t, w, h)
	converge(t, e)

	if !e.bufMu.TryLock() {
		t.Fatal("buffer lock should be free")
	}
	defer e.bufMu.Unlock()

	if e.TryReadFrame(make([]byte, w*h*4), w, h) {
		t.Error("TryReadFrame should fail while the buffer lock is held")
	}
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestEngine_RunsInBackground(t *testing.T) {
	const w, h = 160, 120
	e, err := New(WithViewport(w, h, 1.4, -0.6, 0), WithWorkers(2), WithFrameRate(200))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	frames := 0
	err = e.Present(ctx, w, h, func(img *image.RGBA) {
		frames++
		if e.Stats().Refinements >= 8 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	if frames == 0 {
		t.Fatal("Present delivered no frames")
	}
	if s := e.Stats(); s.Refinements < 8 || s.Rerenders < 1 || s.Swaps < 8 {
		t.Errorf("Stats() = %+v, want a full refinement sequence", s)
	}

	// Pan and let the engine catch up.
	if err := e.Pan(12, 9); err != nil {
		t.Fatalf("Pan() error = %v", err)
	}
	deadline := time.After(10 * time.Second)
	for e.Stats().MarginFills == 0 {
		select {
		case <-deadline:
			t.Fatal("margin fill did not run after pan")
		case <-time.After(time.Millisecond):
		}
	}

	done := make(chan error, 1)
	go func() { done <- e.Close() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Close() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close() did not return")
	}
	if e.pool.IsRunning() {
		t.Error("workers should be stopped after Close")
	}
}

func TestPresent_ReturnsWhenEngineStops(t *testing.T) {
	e, err := New(WithViewport(32, 32, 1.4, -0.6, 0), WithWorkers(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- e.Present(context.Background(), 32, 32, func(*image.RGBA) {})
	}()
	if err := e.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Present() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Present did not return after Close")
	}
}
