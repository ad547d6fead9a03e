// Package probe fills in duration, frame rate and frame size for discovered
// files using ffprobe.
//
// Probing is best-effort: a file that cannot be read is marked probe_failed
// with placeholder metadata and remains eligible for conversion.
package probe
