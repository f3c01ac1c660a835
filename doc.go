// Package fracview is an interactive, progressively refined Mandelbrot
// renderer engine.
//
// # Overview
//
// An Engine keeps an iteration-count frame for a viewport that can be panned,
// zoomed and resized at any time. A pool of worker goroutines recomputes the
// frame in the background, and the caller reads the most recent finished frame
// at its own rate. Reading never waits for computation.
//
// # Quick Start
//
//	e, err := fracview.New(fracview.WithViewport(640, 480, 1.4, -0.6, 0))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := e.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Close()
//
//	e.Pan(10, 0)
//	e.ZoomAt(320, 240, -1)
//
//	err = e.Present(ctx, 640, 480, func(img *image.RGBA) {
//	    // draw img
//	})
//
// # Progressive Refinement
//
// A zoom or resize first produces a blocky preview: one pixel in every 3×3
// cell is computed and copied into its neighbors. Each following pass
// computes one more of the nine phase cells at full resolution, so the frame
// sharpens over eight more passes.
//
// # Panning
//
// Panning moves the displayed frame in place by whole pixels. Only the newly
// exposed edges are computed; the rest of the frame is reused.
//
// # Architecture
//
// The module is organized into:
//   - internal/escape: the pure escape-time computation over pixel regions
//   - internal/parallel: timed locks, the task queue and the worker pool
//   - internal/frame: the double buffer, its stale margins and refinement grid
//   - internal/palette: iteration count to RGBA lookup
//   - fracview: the Engine with its pan coordinator and compute scheduler
//
// # Logging
//
// The engine is silent by default. See SetLogger.
package fracview
