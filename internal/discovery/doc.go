// Package discovery finds video files under a scan root.
//
// Scan only lists files; metadata probing is scheduled separately so callers
// can publish the list immediately.
package discovery
