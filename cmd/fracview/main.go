// Command fracview runs the fracview engine headless: it drives the frame
// loop for a while, optionally panning and zooming on a schedule, and writes
// the last frame it read to an image file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/fracview"
)

// panInterval is how often the scripted pan is applied.
const panInterval = 250 * time.Millisecond

func main() {
	var (
		configPath = flag.String("config", "", "config file (.toml, .yaml or .yml)")
		width      = flag.Int("width", 0, "viewport width (overrides config)")
		height     = flag.Int("height", 0, "viewport height (overrides config)")
		workers    = flag.Int("workers", 0, "worker goroutines, 0 for GOMAXPROCS (overrides config)")
		iters      = flag.Int("iters", 0, "maximum iterations (overrides config)")
		fps        = flag.Int("fps", 0, "frame rate (overrides config)")
		duration   = flag.Duration("duration", 3*time.Second, "how long to run")
		pan        = flag.String("pan", "", "pan by dx,dy pixels every 250ms")
		zoom       = flag.Int("zoom", 0, "zoom notches at start, negative zooms in")
		output     = flag.String("out", "fracview.png", "snapshot file (.png or .bmp), empty to skip")
		scale      = flag.Float64("scale", 1, "snapshot scale factor")
		caption    = flag.Bool("caption", false, "draw the viewport coordinates on the snapshot")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	fracview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := fracview.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = fracview.LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = *width
		case "height":
			cfg.Height = *height
		case "workers":
			cfg.Workers = *workers
		case "iters":
			cfg.MaxIters = *iters
		case "fps":
			cfg.FrameRate = *fps
		}
	})

	dx, dy, err := parsePan(*pan)
	if err != nil {
		log.Fatalf("Invalid -pan: %v", err)
	}

	r := runner{dx: dx, dy: dy, zoom: *zoom}
	snap, err := r.run(cfg, *duration)
	if err != nil {
		log.Fatalf("Engine failed: %v", err)
	}

	if *output != "" && snap != nil {
		if *caption {
			if err := drawCaption(snap, r.final); err != nil {
				log.Printf("Caption skipped: %v", err)
			}
		}
		if err := saveSnapshot(*output, snap, *scale); err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
	}

	p := message.NewPrinter(language.English)
	p.Printf("%d frames, %d batches (%d rerender, %d refine, %d margin), %d swaps, %d pans, %d tasks\n",
		r.frames, r.stats.Batches(), r.stats.Rerenders, r.stats.Refinements, r.stats.MarginFills,
		r.stats.Swaps, r.stats.Pans, r.stats.TasksCompleted)
	if *output != "" && snap != nil {
		p.Printf("Snapshot saved to %s (%dx%d)\n", *output, snap.Bounds().Dx(), snap.Bounds().Dy())
	}
}

// runner drives one engine session.
type runner struct {
	dx, dy int
	zoom   int

	frames int
	stats  fracview.Stats
	final  fracview.Viewport
}

// run starts an engine, presents frames for d and returns a copy of the last
// frame read.
func (r *runner) run(cfg fracview.Config, d time.Duration) (*image.RGBA, error) {
	e, err := fracview.New(fracview.WithConfig(cfg))
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	if err := e.Start(ctx); err != nil {
		return nil, err
	}
	if r.zoom != 0 {
		if err := e.Zoom(r.zoom); err != nil {
			return nil, err
		}
	}

	cfg = e.Config()
	var snap *image.RGBA
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.Present(gctx, cfg.Width, cfg.Height, func(img *image.RGBA) {
			r.frames++
			if snap == nil {
				snap = image.NewRGBA(img.Rect)
			}
			copy(snap.Pix, img.Pix)
		})
	})
	if r.dx != 0 || r.dy != 0 {
		g.Go(func() error { return r.script(gctx, e) })
	}

	err = g.Wait()
	if cerr := e.Close(); err == nil {
		err = cerr
	}
	r.stats = e.Stats()
	if v, derr := e.Desired(); derr == nil {
		r.final = v
	}
	return snap, err
}

// script pans the engine every panInterval until ctx is done.
func (r *runner) script(ctx context.Context, e *fracview.Engine) error {
	tick := time.NewTicker(panInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if err := e.Pan(r.dx, r.dy); err != nil && !errors.Is(err, fracview.ErrBusy) {
				return err
			}
		}
	}
}

// parsePan parses "dx,dy". An empty string means no pan.
func parsePan(s string) (dx, dy int, err error) {
	if s == "" {
		return 0, 0, nil
	}
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("want dx,dy, got %q", s)
	}
	if dx, err = strconv.Atoi(strings.TrimSpace(xs)); err != nil {
		return 0, 0, err
	}
	if dy, err = strconv.Atoi(strings.TrimSpace(ys)); err != nil {
		return 0, 0, err
	}
	return dx, dy, nil
}
