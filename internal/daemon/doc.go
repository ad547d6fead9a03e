// Package daemon owns a vidbatch session: the shared file catalog, the probe
// pool, the batch controller and the HTTP polling API.
//
// Start takes a flock-based lock so only one process converts at a time,
// creates a private work directory for partial encodes and schedules log
// retention. Close waits for the batch loop, removes the work directory and
// releases the lock. Handlers in api_server.go are thin translations of the
// Daemon methods into JSON.
package daemon
