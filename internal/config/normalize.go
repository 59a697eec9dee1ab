package config

import "strings"

// normalize expands user paths and canonicalizes free-form string settings.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.SegmentDir, err = expandPath(c.Paths.SegmentDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Render.Quality = strings.ToLower(strings.TrimSpace(c.Render.Quality))
	c.Render.Style = strings.TrimSpace(c.Render.Style)
	if c.Render.Style == "" {
		c.Render.Style = defaultRenderStyle
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Versions.Planner = strings.TrimSpace(c.Versions.Planner)
	c.Versions.Renderer = strings.TrimSpace(c.Versions.Renderer)
	c.Versions.Exporter = strings.TrimSpace(c.Versions.Exporter)
	return nil
}
