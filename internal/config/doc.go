// Package config loads, normalizes, and validates Opine configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPINE_POSTGRES_DSN. The Config type centralizes every knob the daemon and
// CLI need, from review lease timing to duplicate-scan pacing and storage
// backend selection.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
