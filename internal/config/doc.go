// Package config loads, normalizes, and validates vidbatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VIDBATCH_FFMPEG. The Config type centralizes every knob the daemon and CLI
// need, so scan roots, output directories and encoder defaults are resolved in
// one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
