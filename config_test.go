package fracview

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/fracview/internal/parallel"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigValid(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if c.Workers < 1 || c.Workers > parallel.MaxWorkers {
		t.Errorf("Workers = %d after Validate, want in [1, %d]", c.Workers, parallel.MaxWorkers)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   error
	}{
		{"zero width", func(c *Config) { c.Width = 0 }, ErrInvalidDimensions},
		{"huge", func(c *Config) { c.Width, c.Height = 16384, 16384 }, ErrBufferTooLarge},
		{"zero zoom", func(c *Config) { c.Zoom = 0 }, ErrInvalidConfig},
		{"negative zoom step", func(c *Config) { c.ZoomStep = -1 }, ErrInvalidConfig},
		{"zero frame rate", func(c *Config) { c.FrameRate = 0 }, ErrInvalidConfig},
		{"zero iterations", func(c *Config) { c.MaxIters = 0 }, ErrInvalidConfig},
		{"too many iterations", func(c *Config) { c.MaxIters = 70000 }, ErrInvalidConfig},
		{"striping 4", func(c *Config) { c.Striping = 4 }, ErrInvalidConfig},
		{"workers clamped", func(c *Config) { c.Workers = 100 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(&c)
			err := c.Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
			if err == nil && c.Workers > parallel.MaxWorkers {
				t.Errorf("Workers = %d, want <= %d", c.Workers, parallel.MaxWorkers)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"toml", "view.toml", "width = 320\nheight = 200\nmax_iters = 500\ncenter_x = -0.75\nworkers = 3\n"},
		{"yaml", "view.yaml", "width: 320\nheight: 200\nmax_iters: 500\ncenter_x: -0.75\nworkers: 3\n"},
		{"yml", "view.yml", "width: 320\nheight: 200\nmax_iters: 500\ncenter_x: -0.75\nworkers: 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadConfig(writeConfig(t, tt.file, tt.body))
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if c.Width != 320 || c.Height != 200 || c.MaxIters != 500 || c.CenterX != -0.75 || c.Workers != 3 {
				t.Errorf("LoadConfig() = %+v", c)
			}
			// Keys absent from the file keep their defaults.
			if c.Zoom != 1.4 || c.FrameRate != 60 || c.ZoomStep != 1.4 {
				t.Errorf("defaults lost: %+v", c)
			}
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "view.json", "{}")); !errors.Is(err, ErrConfigFormat) {
		t.Errorf("LoadConfig(.json) = %v, want ErrConfigFormat", err)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig(missing) = %v, want ErrNotExist", err)
	}
	if _, err := LoadConfig(writeConfig(t, "bad.toml", "width = [")); err == nil {
		t.Error("LoadConfig(malformed) should fail")
	}
	if _, err := LoadConfig(writeConfig(t, "bad.yaml", "max_iters: 0\n")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("LoadConfig(invalid) = %v, want ErrInvalidConfig", err)
	}
}

func TestOptionsOverrideConfig(t *testing.T) {
	c := DefaultConfig()
	c.MaxIters = 200
	e, err := New(WithConfig(c), WithWorkers(2), WithFrameRate(30))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	got := e.Config()
	if got.MaxIters != 200 || got.Workers != 2 || got.FrameRate != 30 {
		t.Errorf("Config() = %+v", got)
	}
}
