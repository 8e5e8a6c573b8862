// Package config loads, normalizes, and validates the TOML configuration
// shared by the loom CLI and daemon. Paths are tilde-expanded and made
// absolute during load so downstream packages never re-resolve them.
package config
