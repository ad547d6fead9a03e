// Package history persists completed conversions in a small SQLite database.
//
// The store lives at <state_dir>/history.db, runs in WAL mode, and retries
// briefly when another vidbatch process holds the write lock. Entries are
// append-only apart from Clear; the daemon records one row per successful
// encode and the CLI lists them newest first.
package history
