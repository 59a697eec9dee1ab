package testsupport

import (
	"path/filepath"
	"testing"

	"flowquest/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Render settings are scaled down so test renders stay fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.SegmentDir = filepath.Join(base, "segments")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Render.Workers = 2
	cfg.Render.FPS = 10
	cfg.Render.Width = 640
	cfg.Render.Height = 360

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWorkers overrides the render worker count on the test config.
func WithWorkers(n int) ConfigOption {
	return func(c *config.Config) {
		c.Render.Workers = n
	}
}

// WithQuality overrides the render quality preset on the test config.
func WithQuality(quality string) ConfigOption {
	return func(c *config.Config) {
		c.Render.Quality = quality
	}
}
