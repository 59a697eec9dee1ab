// Package config loads, normalizes, and validates flowquest configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// engine and CLI need: render worker counts, frame geometry, cache sizing, and
// receipt version strings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical quality presets, and clear validation errors.
package config
