// Package config loads, normalizes, and validates lawfeed configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LAWFEED_DATA_DIR. The Config type centralizes every knob the daemon and
// CLI need: where feed files arrive and are archived, where the SQLite store
// lives, the page sizes and poll intervals of the collation and dispatch
// lanes, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical encodings, and clear validation errors.
package config
