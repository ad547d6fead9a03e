// Package logging assembles structured slog loggers and formatting helpers used
// across vidbatch.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so batch code can tag log lines
// with batch and file identifiers. StreamHub keeps every record of the session
// in memory and serves the most recent window to pollers; it is the log sink
// behind the HTTP API and the CLI progress view.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the rest
// of the system.
package logging
