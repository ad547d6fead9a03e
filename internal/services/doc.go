// Package services defines shared utilities consumed by the conversion
// pipeline components.
//
// Key responsibilities:
//   - Context helpers that stamp batch IDs, source file IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (invalid path, probe, encoder, concurrent start) with errors.Is.
package services
