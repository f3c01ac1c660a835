package fracview

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/fracview/internal/frame"
	"github.com/gogpu/fracview/internal/parallel"
)

// ErrConfigFormat is returned by LoadConfig for a file extension it cannot
// parse.
var ErrConfigFormat = errors.New("fracview: unsupported config format")

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("fracview: invalid config")

// Config is the engine configuration. The zero value is not valid; start
// from DefaultConfig.
type Config struct {
	// Width and Height are the initial viewport size in pixels.
	Width  int `toml:"width" yaml:"width"`
	Height int `toml:"height" yaml:"height"`

	// Zoom is the half-extent of the shorter viewport side in plane units.
	Zoom float64 `toml:"zoom" yaml:"zoom"`

	// CenterX and CenterY are the initial plane coordinates of the center.
	CenterX float64 `toml:"center_x" yaml:"center_x"`
	CenterY float64 `toml:"center_y" yaml:"center_y"`

	// Workers is the worker goroutine count; 0 means GOMAXPROCS.
	Workers int `toml:"workers" yaml:"workers"`

	// FrameRate is the Present loop rate in frames per second.
	FrameRate int `toml:"frame_rate" yaml:"frame_rate"`

	// MaxIters is the escape-time iteration limit.
	MaxIters int `toml:"max_iters" yaml:"max_iters"`

	// Striping is the progressive refinement factor. Only 3 is supported.
	Striping int `toml:"striping" yaml:"striping"`

	// ZoomStep is the zoom factor applied per Zoom notch.
	ZoomStep float64 `toml:"zoom_step" yaml:"zoom_step"`
}

// DefaultConfig returns the default configuration: a 622×433 view of the
// whole set.
func DefaultConfig() Config {
	return Config{
		Width:     622,
		Height:    433,
		Zoom:      1.4,
		CenterX:   -0.6,
		CenterY:   0,
		Workers:   0,
		FrameRate: 60,
		MaxIters:  1000,
		Striping:  frame.StripeFactor,
		ZoomStep:  1.4,
	}
}

// Validate checks the configuration and normalizes Workers into
// [1, parallel.MaxWorkers].
func (c *Config) Validate() error {
	if err := frame.CheckDimensions(c.Width, c.Height); err != nil {
		return err
	}
	switch {
	case !positive(c.Zoom):
		return fmt.Errorf("%w: zoom %v must be positive", ErrInvalidConfig, c.Zoom)
	case !positive(c.ZoomStep):
		return fmt.Errorf("%w: zoom_step %v must be positive", ErrInvalidConfig, c.ZoomStep)
	case math.IsNaN(c.CenterX) || math.IsNaN(c.CenterY) || math.IsInf(c.CenterX, 0) || math.IsInf(c.CenterY, 0):
		return fmt.Errorf("%w: center must be finite", ErrInvalidConfig)
	case c.FrameRate <= 0:
		return fmt.Errorf("%w: frame_rate %d must be positive", ErrInvalidConfig, c.FrameRate)
	case c.MaxIters < 1 || c.MaxIters > math.MaxUint16:
		return fmt.Errorf("%w: max_iters %d out of range [1, %d]", ErrInvalidConfig, c.MaxIters, math.MaxUint16)
	case c.Striping != frame.StripeFactor:
		return fmt.Errorf("%w: striping %d, only %d is supported", ErrInvalidConfig, c.Striping, frame.StripeFactor)
	}
	c.Workers = parallel.ClampWorkers(c.Workers)
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// LoadConfig reads a configuration file on top of DefaultConfig. The format
// is chosen by extension: .toml, .yaml or .yml. Keys missing from the file
// keep their defaults. The result is validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("fracview: read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return cfg, fmt.Errorf("%w: %q", ErrConfigFormat, ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("fracview: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("fracview: %s: %w", path, err)
	}
	return cfg, nil
}
