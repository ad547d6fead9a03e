// Package api defines wire-format types and converters for the HTTP polling
// API. It translates catalog, batch, encoding and logging models into
// transport-friendly DTOs that the browser UI and the CLI render without
// coupling to internal types.
//
// # Key Types
//
// SourceFile: one catalog entry with probed metadata and status.
//
// BatchState: phase, counters, current file and progress of the batch run.
//
// ConversionResult: a finished conversion with sizes and reduction.
//
// DaemonStatus: batch state, catalog counts and dependency availability.
//
// LogEvent/LogsResponse: the newest structured log lines.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript consumers. Enums are exposed as
// lowercase strings. Timestamps use RFC3339 with milliseconds and are omitted
// when unset.
package api
