package fracview

// Option configures an Engine during creation.
// Use functional options to customize Engine behavior.
//
// Example:
//
//	// Default configuration
//	e, err := fracview.New()
//
//	// Fixed worker count, deeper iterations
//	e, err := fracview.New(fracview.WithWorkers(4), fracview.WithMaxIters(4000))
type Option func(*options)

// options holds optional configuration for Engine creation.
type options struct {
	config Config
}

// defaultOptions returns the default engine options.
func defaultOptions() options {
	return options{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration, typically one returned by
// LoadConfig. Options applied after it override individual fields.
func WithConfig(c Config) Option {
	return func(o *options) {
		o.config = c
	}
}

// WithWorkers sets the number of worker goroutines.
// Zero or negative means GOMAXPROCS; the count is capped at parallel.MaxWorkers.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.config.Workers = n
	}
}

// WithMaxIters sets the escape-time iteration limit.
func WithMaxIters(n int) Option {
	return func(o *options) {
		o.config.MaxIters = n
	}
}

// WithViewport sets the initial viewport: its size in pixels, the zoom
// (half-extent of the shorter side) and the plane coordinates of its center.
//
// Example:
//
//	e, err := fracview.New(fracview.WithViewport(640, 480, 1.4, -0.6, 0))
func WithViewport(width, height int, zoom, centerX, centerY float64) Option {
	return func(o *options) {
		o.config.Width = width
		o.config.Height = height
		o.config.Zoom = zoom
		o.config.CenterX = centerX
		o.config.CenterY = centerY
	}
}

// WithFrameRate sets the rate of the Present loop in frames per second.
func WithFrameRate(fps int) Option {
	return func(o *options) {
		o.config.FrameRate = fps
	}
}
