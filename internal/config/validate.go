package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.SegmentDir == "" {
		return errors.New("paths.segment_dir must be set")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.Workers <= 0 {
		return errors.New("render.workers must be positive")
	}
	if c.Render.FPS <= 0 {
		return errors.New("render.fps must be positive")
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return errors.New("render.width and render.height must be positive")
	}
	switch c.Render.Quality {
	case "preview", "high":
	default:
		return fmt.Errorf("render.quality must be \"preview\" or \"high\", got %q", c.Render.Quality)
	}
	if c.Render.ShotTimeoutSeconds <= 0 {
		return errors.New("render.shot_timeout_seconds must be positive")
	}
	if c.Render.EncodeRetries < 1 {
		return errors.New("render.encode_retries must be at least 1")
	}
	if c.Render.EncodeBackoffMS < 0 {
		return errors.New("render.encode_backoff_ms must not be negative")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Capacity <= 0 {
		return errors.New("cache.capacity must be positive")
	}
	if c.Cache.TTLSeconds < 0 {
		return errors.New("cache.ttl_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
