// Package logging wraps log/slog with the structured field conventions shared
// across the daemon, engine, and CLI. Handlers are selected from config:
// "console" renders operator-friendly lines, "json" emits machine-parseable
// records with normalized keys.
package logging
